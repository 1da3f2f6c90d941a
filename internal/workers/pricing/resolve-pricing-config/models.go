package resolvepricingconfig

import "panta-workers/internal/pricing"

type Input struct {
	TenantID     pricing.TenantID `json:"tenantId"`
	ForceRefresh bool             `json:"forceRefresh,omitempty"`
}

type Output struct {
	TenantID            pricing.TenantID      `json:"tenantId"`
	Configuration       pricing.Configuration `json:"configuration"`
	ConfigurationSource pricing.ConfigOrigin  `json:"configurationSource"`
	Refreshed           bool                  `json:"refreshed"`
}
