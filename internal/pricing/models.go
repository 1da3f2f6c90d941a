package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type FuelType string

const (
	FuelGasoline FuelType = "gasoline"
	FuelEthanol  FuelType = "ethanol"
	FuelElectric FuelType = "electric"
	FuelOther    FuelType = "other"
)

// VehicleInfo describes the vehicle being quoted. PickupDistance is nil when
// no distance was given, which is not the same as a drop-off (0).
type VehicleInfo struct {
	Year              int      `json:"year"`
	FuelType          FuelType `json:"fuelType"`
	PickupDistance    *float64 `json:"pickupDistance,omitempty"`
	IsDropoffComplete bool     `json:"isDropoffComplete,omitempty"`

	HasEngine       bool `json:"hasEngine,omitempty"`
	HasTransmission bool `json:"hasTransmission,omitempty"`
	HasCatalyst     bool `json:"hasCatalyst,omitempty"`
	HasBattery      bool `json:"hasBattery,omitempty"`
	HasFourWheels   bool `json:"hasFourWheels,omitempty"`
	IsOtherComplete bool `json:"isOtherComplete,omitempty"`
}

// Distance returns a pointer to km for VehicleInfo.PickupDistance.
func Distance(km float64) *float64 {
	return &km
}

type AgeBonuses struct {
	Age0To5   int64 `json:"age0to5"`
	Age5To10  int64 `json:"age5to10"`
	Age10To15 int64 `json:"age10to15"`
	Age15To20 int64 `json:"age15to20"`
	Age20Plus int64 `json:"age20plus"`
}

type OldCarDeduction struct {
	Before1990 int64 `json:"before1990"`
}

type DistanceAdjustments struct {
	DropoffComplete   int64 `json:"dropoffComplete"`
	DropoffIncomplete int64 `json:"dropoffIncomplete"`
	Pickup0To20       int64 `json:"pickup0to20"`
	Pickup20To50      int64 `json:"pickup20to50"`
	Pickup50To75      int64 `json:"pickup50to75"`
	Pickup75To100     int64 `json:"pickup75to100"`
	Pickup100Plus     int64 `json:"pickup100plus"`
}

type PartsBonuses struct {
	EngineTransmissionCatalyst int64 `json:"engineTransmissionCatalyst"`
	BatteryWheelsOther         int64 `json:"batteryWheelsOther"`
}

type FuelAdjustments struct {
	Gasoline int64 `json:"gasoline"`
	Ethanol  int64 `json:"ethanol"`
	Electric int64 `json:"electric"`
	Other    int64 `json:"other"`
}

// For returns the adjustment for fuel, or 0 for an unknown fuel type.
func (f FuelAdjustments) For(fuel FuelType) int64 {
	switch fuel {
	case FuelGasoline:
		return f.Gasoline
	case FuelEthanol:
		return f.Ethanol
	case FuelElectric:
		return f.Electric
	case FuelOther:
		return f.Other
	default:
		return 0
	}
}

// Configuration is a complete, read-only pricing table for one tenant.
type Configuration struct {
	AgeBonuses          AgeBonuses          `json:"ageBonuses"`
	OldCarDeduction     OldCarDeduction     `json:"oldCarDeduction"`
	DistanceAdjustments DistanceAdjustments `json:"distanceAdjustments"`
	PartsBonuses        PartsBonuses        `json:"partsBonuses"`
	FuelAdjustments     FuelAdjustments     `json:"fuelAdjustments"`
}

// ConfigurationOverride is a tenant's partial configuration. A present
// category replaces the default category as a whole.
type ConfigurationOverride struct {
	AgeBonuses          *AgeBonuses          `json:"ageBonuses,omitempty"`
	OldCarDeduction     *OldCarDeduction     `json:"oldCarDeduction,omitempty"`
	DistanceAdjustments *DistanceAdjustments `json:"distanceAdjustments,omitempty"`
	PartsBonuses        *PartsBonuses        `json:"partsBonuses,omitempty"`
	FuelAdjustments     *FuelAdjustments     `json:"fuelAdjustments,omitempty"`
}

// Apply merges the override onto base category by category.
func (o *ConfigurationOverride) Apply(base Configuration) Configuration {
	if o == nil {
		return base
	}
	if o.AgeBonuses != nil {
		base.AgeBonuses = *o.AgeBonuses
	}
	if o.OldCarDeduction != nil {
		base.OldCarDeduction = *o.OldCarDeduction
	}
	if o.DistanceAdjustments != nil {
		base.DistanceAdjustments = *o.DistanceAdjustments
	}
	if o.PartsBonuses != nil {
		base.PartsBonuses = *o.PartsBonuses
	}
	if o.FuelAdjustments != nil {
		base.FuelAdjustments = *o.FuelAdjustments
	}
	return base
}

type BreakdownItem struct {
	Category    string `json:"category"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type Result struct {
	BasePrice          int64           `json:"basePrice"`
	AgeBonus           int64           `json:"ageBonus"`
	OldCarDeduction    int64           `json:"oldCarDeduction"`
	DistanceAdjustment int64           `json:"distanceAdjustment"`
	PartsBonus         int64           `json:"partsBonus"`
	FuelAdjustment     int64           `json:"fuelAdjustment"`
	TotalPrice         int64           `json:"totalPrice"`
	Breakdown          []BreakdownItem `json:"breakdown"`
}

// ConfigOrigin tells where a loaded configuration came from.
type ConfigOrigin string

const (
	OriginTenant  ConfigOrigin = "tenant"
	OriginDefault ConfigOrigin = "default"
)

// QuoteRecord is the persisted form of a calculated quote.
type QuoteRecord struct {
	QuoteID             string       `json:"quoteId"`
	TenantID            TenantID     `json:"tenantId"`
	Vehicle             VehicleInfo  `json:"vehicle"`
	Result              Result       `json:"result"`
	ConfigurationSource ConfigOrigin `json:"configurationSource"`
	CalculatedAt        time.Time    `json:"calculatedAt"`
}

// ErrInvalidTenantID is returned when a tenant id is neither a JSON string nor an integer.
var ErrInvalidTenantID = errors.New("tenant id must be a string or an integer")

// TenantID identifies a tenant. On input it may be a JSON string or integer.
type TenantID string

func (t TenantID) String() string {
	return string(t)
}

func (t *TenantID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TenantID(strings.TrimSpace(s))
		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("%w, got %s", ErrInvalidTenantID, string(data))
	}
	*t = TenantID(strconv.FormatInt(n, 10))
	return nil
}
