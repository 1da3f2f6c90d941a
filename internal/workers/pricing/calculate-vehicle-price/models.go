package calculatevehicleprice

import (
	"encoding/json"

	"panta-workers/internal/pricing"
)

type Input struct {
	TenantID    pricing.TenantID `json:"tenantId"`
	Vehicle     json.RawMessage  `json:"vehicle"`
	BasePrice   int64            `json:"basePrice"`
	RecordQuote *bool            `json:"recordQuote,omitempty"`
}

type Output struct {
	QuoteID             string               `json:"quoteId"`
	TenantID            pricing.TenantID     `json:"tenantId"`
	ConfigurationSource pricing.ConfigOrigin `json:"configurationSource"`
	pricing.Result
}
