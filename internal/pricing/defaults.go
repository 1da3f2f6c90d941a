package pricing

// DefaultConfiguration returns the built-in pricing table used when a tenant
// has no configuration of its own.
func DefaultConfiguration() Configuration {
	return Configuration{
		AgeBonuses: AgeBonuses{
			Age0To5:   10000,
			Age5To10:  5000,
			Age10To15: 2500,
			Age15To20: 1000,
			Age20Plus: 0,
		},
		OldCarDeduction: OldCarDeduction{
			Before1990: -1000,
		},
		DistanceAdjustments: DistanceAdjustments{
			DropoffComplete:   500,
			DropoffIncomplete: 0,
			Pickup0To20:       -250,
			Pickup20To50:      -500,
			Pickup50To75:      -1000,
			Pickup75To100:     -1250,
			Pickup100Plus:     -2500,
		},
		PartsBonuses: PartsBonuses{
			EngineTransmissionCatalyst: 1000,
			BatteryWheelsOther:         500,
		},
		FuelAdjustments: FuelAdjustments{
			Gasoline: 0,
			Ethanol:  0,
			Electric: 0,
			Other:    -500,
		},
	}
}
