package services

import "fmt"

// LocalModelGrouping selects how mapped shipments are clustered into
// courier rounds.
type LocalModelGrouping int

const (
	// GroupByParking clusters by parking tag and allowed vehicles only.
	GroupByParking LocalModelGrouping = iota
	// GroupByParkingAndTime additionally splits groups by the first
	// delivery's time window.
	GroupByParkingAndTime
)

// Options tune the generated sub-models. The zero value is not usable;
// start from DefaultOptions.
type Options struct {
	// Grouping strategy for the local model.
	Grouping LocalModelGrouping

	// Cost coefficients of synthesized round vehicles. The fixed cost is
	// deliberately high so the solver minimizes the number of rounds; the
	// per-hour and per-km costs are small tie-breakers.
	LocalVehicleFixedCost        float64
	LocalVehicleCostPerHour      float64
	LocalVehicleCostPerKilometer float64

	// MinAverageShipmentsPerRound controls how many round vehicles a
	// group gets: ceil(groupSize / MinAverageShipmentsPerRound).
	MinAverageShipmentsPerRound int

	// TravelModeInMergedTransitions annotates merged-plan transitions
	// with the travel mode and duration multiple of each stitched leg.
	TravelModeInMergedTransitions bool

	// UseStartTimesInRefinementHint injects visit start times into the
	// first-solution hint of refinement sub-models.
	UseStartTimesInRefinementHint bool
}

// DefaultOptions returns the recommended tuning.
func DefaultOptions() Options {
	return Options{
		Grouping:                     GroupByParking,
		LocalVehicleFixedCost:        10_000,
		LocalVehicleCostPerHour:      300,
		LocalVehicleCostPerKilometer: 60,
		MinAverageShipmentsPerRound:  1,
	}
}

func (o Options) validate() error {
	if o.Grouping != GroupByParking && o.Grouping != GroupByParkingAndTime {
		return fmt.Errorf("unknown grouping strategy %d", o.Grouping)
	}
	if o.MinAverageShipmentsPerRound < 1 {
		return fmt.Errorf(
			"min average shipments per round must be at least 1, got %d",
			o.MinAverageShipmentsPerRound,
		)
	}
	return nil
}
