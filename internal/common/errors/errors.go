// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeParseError         ErrorCode = "PARSE_ERROR"
	ErrCodeInvalidVehicleInfo ErrorCode = "INVALID_VEHICLE_INFO"
	ErrCodeInvalidTenantID    ErrorCode = "INVALID_TENANT_ID"

	ErrCodeCacheInvalidationFailed ErrorCode = "CACHE_INVALIDATION_FAILED"

	ErrCodeExternalService  ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout          ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAuthentication   ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// BPMNError is what gets thrown back to the process engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

func NewParseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseError,
		Message:   "Failed to parse job variables",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidVehicleInfoError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidVehicleInfo,
		Message:   "Vehicle information failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidTenantIDError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTenantID,
		Message:   "Tenant identifier is missing or invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewCacheInvalidationFailedError(tenantID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheInvalidationFailed,
		Message:   "Failed to invalidate cached pricing configuration",
		Details:   fmt.Sprintf("tenantId: %s, error: %s", tenantID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthentication,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeParseError:              "PARSE_ERROR",
	ErrCodeInvalidVehicleInfo:      "INVALID_VEHICLE_INFO",
	ErrCodeInvalidTenantID:         "INVALID_TENANT_ID",
	ErrCodeCacheInvalidationFailed: "CACHE_INVALIDATION_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCacheInvalidationFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout:
		return 2

	default:
		return 0 // business errors are thrown, not retried
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CACHE"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "PARSE"):
		return "VALIDATION"
	case strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT"):
		return "EXTERNAL"
	case strings.Contains(codeStr, "AUTH"):
		return "AUTH"
	default:
		return "OTHER"
	}
}
