package validation

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"panta-workers/internal/pricing"
)

// FirstVehicleYear is the earliest manufacture year accepted on input.
const FirstVehicleYear = 1886

const vehicleSchemaTemplate = `{
  "type": "object",
  "required": ["year", "fuelType"],
  "properties": {
    "year": {"type": "integer", "minimum": %d, "maximum": %d},
    "fuelType": {"type": "string", "enum": ["gasoline", "ethanol", "electric", "other"]},
    "pickupDistance": {"type": "number", "minimum": 0},
    "isDropoffComplete": {"type": "boolean"},
    "hasEngine": {"type": "boolean"},
    "hasTransmission": {"type": "boolean"},
    "hasCatalyst": {"type": "boolean"},
    "hasBattery": {"type": "boolean"},
    "hasFourWheels": {"type": "boolean"},
    "isOtherComplete": {"type": "boolean"}
  }
}`

// VehicleValidator checks vehicle input against the vehicle schema. The upper
// year bound follows the clock, so the compiled schema is rebuilt when the year changes.
type VehicleValidator struct {
	now func() time.Time

	mu     sync.Mutex
	year   int
	schema *Schema
}

func NewVehicleValidator(now func() time.Time) *VehicleValidator {
	if now == nil {
		now = time.Now
	}
	return &VehicleValidator{now: now}
}

func (v *VehicleValidator) currentSchema() (*Schema, error) {
	year := v.now().Year()

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.schema != nil && v.year == year {
		return v.schema, nil
	}
	s, err := Compile(fmt.Sprintf(vehicleSchemaTemplate, FirstVehicleYear, year+1))
	if err != nil {
		return nil, err
	}
	v.schema, v.year = s, year
	return s, nil
}

// Decode validates raw and decodes it into a VehicleInfo. A non-nil result with
// Valid false means the document was rejected.
func (v *VehicleValidator) Decode(raw json.RawMessage) (pricing.VehicleInfo, *ValidationResult, error) {
	var vehicle pricing.VehicleInfo

	if len(raw) == 0 || string(raw) == "null" {
		return vehicle, &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "vehicle", Message: "vehicle is required", Code: "required"}},
		}, nil
	}

	schema, err := v.currentSchema()
	if err != nil {
		return vehicle, nil, err
	}

	result, err := schema.ValidateJSON(raw)
	if err != nil {
		return vehicle, nil, err
	}
	if !result.Valid {
		return vehicle, result, nil
	}

	if err := json.Unmarshal(raw, &vehicle); err != nil {
		return vehicle, nil, fmt.Errorf("decode vehicle: %w", err)
	}
	return vehicle, result, nil
}
