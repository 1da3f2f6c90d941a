package pricing

import "math"

const (
	CategoryAge      = "Åldersbonus"
	CategoryOldCar   = "Avdrag"
	CategoryDistance = "Avstånd"
	CategoryParts    = "Delbonus"
	CategoryFuel     = "Bränsle"
)

const oldCarCutoffYear = 1990

func ageBonus(cfg AgeBonuses, age int) []BreakdownItem {
	var amount int64
	var desc string
	switch {
	case age < 5:
		amount, desc = cfg.Age0To5, "0-4,99 år"
	case age < 10:
		amount, desc = cfg.Age5To10, "5-9,99 år"
	case age < 15:
		amount, desc = cfg.Age10To15, "10-14,99 år"
	case age < 20:
		amount, desc = cfg.Age15To20, "15-19,99 år"
	default:
		amount, desc = cfg.Age20Plus, "20+ år"
	}
	return []BreakdownItem{{Category: CategoryAge, Amount: amount, Description: desc}}
}

func oldCarDeduction(cfg OldCarDeduction, year int) []BreakdownItem {
	if year >= oldCarCutoffYear {
		return nil
	}
	return []BreakdownItem{{Category: CategoryOldCar, Amount: cfg.Before1990, Description: "Före 1990"}}
}

// distanceAdjustment prices drop-off (distance 0) or pickup. A missing or
// negative distance contributes nothing.
func distanceAdjustment(cfg DistanceAdjustments, v VehicleInfo) []BreakdownItem {
	if v.PickupDistance == nil {
		return nil
	}
	d := *v.PickupDistance

	var amount int64
	var desc string
	switch {
	case d == 0 && v.IsDropoffComplete:
		amount, desc = cfg.DropoffComplete, "Avlämning (komplett)"
	case d == 0:
		amount, desc = cfg.DropoffIncomplete, "Avlämning (ofullständig)"
	case d < 0 || math.IsNaN(d):
		return nil
	case d <= 20:
		amount, desc = cfg.Pickup0To20, "Hämtning 0-20km"
	case d <= 50:
		amount, desc = cfg.Pickup20To50, "Hämtning 20-50km"
	case d <= 75:
		amount, desc = cfg.Pickup50To75, "Hämtning 50-75km"
	case d <= 100:
		amount, desc = cfg.Pickup75To100, "Hämtning 75-100km"
	default:
		amount, desc = cfg.Pickup100Plus, "Hämtning 100+km"
	}
	return []BreakdownItem{{Category: CategoryDistance, Amount: amount, Description: desc}}
}

func partsBonus(cfg PartsBonuses, v VehicleInfo) []BreakdownItem {
	var items []BreakdownItem
	if v.HasEngine || v.HasTransmission || v.HasCatalyst {
		items = append(items, BreakdownItem{
			Category:    CategoryParts,
			Amount:      cfg.EngineTransmissionCatalyst,
			Description: "Motor/Växellåda/Katalysator",
		})
	}
	if v.HasBattery || v.HasFourWheels || v.IsOtherComplete {
		items = append(items, BreakdownItem{
			Category:    CategoryParts,
			Amount:      cfg.BatteryWheelsOther,
			Description: "Batteri/Hjul/Övrigt",
		})
	}
	return items
}

func fuelAdjustment(cfg FuelAdjustments, fuel FuelType) []BreakdownItem {
	amount := cfg.For(fuel)
	if amount == 0 {
		return nil
	}
	return []BreakdownItem{{Category: CategoryFuel, Amount: amount, Description: fuelLabel(fuel)}}
}

func fuelLabel(fuel FuelType) string {
	switch fuel {
	case FuelGasoline:
		return "Bensin"
	case FuelEthanol:
		return "Etanol"
	case FuelElectric:
		return "El"
	case FuelOther:
		return "Annat"
	default:
		return string(fuel)
	}
}

func sum(items []BreakdownItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Amount
	}
	return total
}

// Evaluate prices vehicle against cfg for the given calendar year. It never fails:
// malformed input contributes 0.
func Evaluate(cfg Configuration, v VehicleInfo, basePrice int64, currentYear int) Result {
	age := ageBonus(cfg.AgeBonuses, currentYear-v.Year)
	oldCar := oldCarDeduction(cfg.OldCarDeduction, v.Year)
	distance := distanceAdjustment(cfg.DistanceAdjustments, v)
	parts := partsBonus(cfg.PartsBonuses, v)
	fuel := fuelAdjustment(cfg.FuelAdjustments, v.FuelType)

	res := Result{
		BasePrice:          basePrice,
		AgeBonus:           sum(age),
		OldCarDeduction:    sum(oldCar),
		DistanceAdjustment: sum(distance),
		PartsBonus:         sum(parts),
		FuelAdjustment:     sum(fuel),
		Breakdown:          []BreakdownItem{},
	}
	res.TotalPrice = res.BasePrice + res.AgeBonus + res.OldCarDeduction +
		res.DistanceAdjustment + res.PartsBonus + res.FuelAdjustment

	for _, group := range [][]BreakdownItem{age, oldCar, distance, parts, fuel} {
		for _, it := range group {
			if it.Amount != 0 {
				res.Breakdown = append(res.Breakdown, it)
			}
		}
	}
	return res
}
