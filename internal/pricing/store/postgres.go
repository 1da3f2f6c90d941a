package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"panta-workers/internal/pricing"
)

// PricingTypeVehicle marks vehicle pricing rows in pricing_configurations.
const PricingTypeVehicle = "vehicle_pricing"

const selectActiveConfiguration = `
	SELECT configuration
	FROM pricing_configurations
	WHERE tenant_id = $1
	  AND pricing_type = $2
	  AND is_active = true
	ORDER BY updated_at DESC
	LIMIT 1`

// PostgresSource reads tenant pricing overrides from PostgreSQL.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) FetchPricingConfiguration(ctx context.Context, tenantID pricing.TenantID) (*pricing.ConfigurationOverride, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, selectActiveConfiguration, string(tenantID), PricingTypeVehicle).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pricing.ErrConfigurationNotFound
		}
		return nil, fmt.Errorf("query pricing configuration: %w", err)
	}
	return decodeOverride(raw)
}

func decodeOverride(raw []byte) (*pricing.ConfigurationOverride, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, pricing.ErrConfigurationNotFound
	}
	var override pricing.ConfigurationOverride
	if err := json.Unmarshal(raw, &override); err != nil {
		return nil, fmt.Errorf("decode pricing configuration: %w", err)
	}
	return &override, nil
}
