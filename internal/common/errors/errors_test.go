package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"invalid vehicle", NewInvalidVehicleInfoError("year: must be >= 1886"), "INVALID_VEHICLE_INFO", 0},
		{"invalid tenant", NewInvalidTenantIDError("tenantId is required"), "INVALID_TENANT_ID", 0},
		{"parse", NewParseError(fmt.Errorf("unexpected end of JSON input")), "PARSE_ERROR", 0},
		{"cache", NewCacheInvalidationFailedError("t1", fmt.Errorf("i/o timeout")), "CACHE_INVALIDATION_FAILED", 3},
		{"timeout", NewTimeoutError("zeebe", fmt.Errorf("deadline exceeded")), "TIMEOUT_ERROR", 2},
		{"unmapped code", NewInternalError(fmt.Errorf("boom")), "INTERNAL_ERROR", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmnErr := ConvertToBPMNError(tt.err)

			assert.Equal(t, tt.wantCode, bpmnErr.Code)
			assert.Equal(t, tt.wantRetries, bpmnErr.Retries)
			assert.Equal(t, tt.err.Retryable, bpmnErr.Retryable)

			vars := bpmnErr.ToErrorVariables()
			assert.Equal(t, tt.wantCode, vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestNormalize(t *testing.T) {
	std := NewInvalidTenantIDError("missing")
	assert.Same(t, std, Normalize(std))
	assert.Same(t, std, Normalize(fmt.Errorf("wrapped: %w", std)))

	other := Normalize(stderrors.New("plain"))
	assert.Equal(t, ErrCodeInternal, other.Code)
	assert.False(t, other.Retryable)
	assert.Equal(t, "plain", other.Details)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidVehicleInfo))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeParseError))
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeCacheInvalidationFailed))
	assert.Equal(t, "EXTERNAL", GetErrorCategory(ErrCodeExternalService))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeAuthentication))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeCacheInvalidationFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeTimeout))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidVehicleInfo))
}
