package quickvehicleprice

import (
	"encoding/json"

	"panta-workers/internal/pricing"
)

type Input struct {
	TenantID  pricing.TenantID `json:"tenantId"`
	Vehicle   json.RawMessage  `json:"vehicle"`
	BasePrice int64            `json:"basePrice"`
}

type Output struct {
	TotalPrice int64 `json:"totalPrice"`
}
