package dto

import (
	"errors"
	"strconv"

	"twostep-routing-service/internal/services"
	"twostep-routing-service/internal/solver"
)

// Parking mirrors services.ParkingLocation on the wire.
type Parking struct {
	Tag                    string            `json:"tag"`
	Waypoint               *solver.Waypoint  `json:"waypoint"`
	TravelMode             solver.TravelMode `json:"travel_mode,omitempty"`
	TravelDurationMultiple *float64          `json:"travel_duration_multiple,omitempty"`
	DeliveryLoadLimits     map[string]int64  `json:"delivery_load_limits,omitempty"`
	MaxRoundDuration       *solver.Duration  `json:"max_round_duration,omitempty"`
	ArrivalDuration        *solver.Duration  `json:"arrival_duration,omitempty"`
	DepartureDuration      *solver.Duration  `json:"departure_duration,omitempty"`
	ReloadDuration         *solver.Duration  `json:"reload_duration,omitempty"`
	ArrivalCost            float64           `json:"arrival_cost,omitempty"`
	DepartureCost          float64           `json:"departure_cost,omitempty"`
	ReloadCost             float64           `json:"reload_cost,omitempty"`
}

// PlanOptions mirrors services.Options; pointer fields fall back to the
// recommended defaults when omitted.
type PlanOptions struct {
	GroupByTime                   bool     `json:"group_by_time,omitempty"`
	LocalVehicleFixedCost         *float64 `json:"local_vehicle_fixed_cost,omitempty"`
	LocalVehicleCostPerHour       *float64 `json:"local_vehicle_cost_per_hour,omitempty"`
	LocalVehicleCostPerKilometer  *float64 `json:"local_vehicle_cost_per_kilometer,omitempty"`
	MinAverageShipmentsPerRound   *int     `json:"min_average_shipments_per_round,omitempty"`
	TravelModeInMergedTransitions bool     `json:"travel_mode_in_merged_transitions,omitempty"`
	UseStartTimesInRefinementHint bool     `json:"use_start_times_in_refinement_hint,omitempty"`
}

// PlanRequest is one planning scenario: the base optimization request,
// the parking locations and which shipments are served from which
// parking. Keys of ParkingForShipment are shipment indices into the
// base model, as strings.
type PlanRequest struct {
	Request            solver.Request    `json:"request"`
	Parkings           []Parking         `json:"parkings"`
	ParkingForShipment map[string]string `json:"parking_for_shipment,omitempty"`
	Options            *PlanOptions      `json:"options,omitempty"`
}

type PlanResponse struct {
	RunID    string           `json:"run_id"`
	Refined  bool             `json:"refined"`
	Request  *solver.Request  `json:"request"`
	Response *solver.Response `json:"response"`
}

// ServiceParkings converts the wire parkings to their services form.
func (r *PlanRequest) ServiceParkings() []services.ParkingLocation {
	parkings := make([]services.ParkingLocation, 0, len(r.Parkings))
	for _, p := range r.Parkings {
		parkings = append(parkings, services.ParkingLocation{
			Tag:                    p.Tag,
			Waypoint:               p.Waypoint,
			TravelMode:             p.TravelMode,
			TravelDurationMultiple: p.TravelDurationMultiple,
			DeliveryLoadLimits:     p.DeliveryLoadLimits,
			MaxRoundDuration:       p.MaxRoundDuration,
			ArrivalDuration:        p.ArrivalDuration,
			DepartureDuration:      p.DepartureDuration,
			ReloadDuration:         p.ReloadDuration,
			ArrivalCost:            p.ArrivalCost,
			DepartureCost:          p.DepartureCost,
			ReloadCost:             p.ReloadCost,
		})
	}
	return parkings
}

// ServiceParkingFor converts the string-keyed shipment mapping to
// integer shipment indices.
func (r *PlanRequest) ServiceParkingFor() (map[int]string, error) {
	if len(r.ParkingForShipment) == 0 {
		return nil, nil
	}
	out := make(map[int]string, len(r.ParkingForShipment))
	for key, tag := range r.ParkingForShipment {
		index, err := strconv.Atoi(key)
		if err != nil {
			return nil, errors.New("parking_for_shipment keys must be shipment indices")
		}
		out[index] = tag
	}
	return out, nil
}

// ServiceOptions applies the wire options on top of the recommended
// defaults.
func (r *PlanRequest) ServiceOptions() services.Options {
	options := services.DefaultOptions()
	in := r.Options
	if in == nil {
		return options
	}

	if in.GroupByTime {
		options.Grouping = services.GroupByParkingAndTime
	}
	if in.LocalVehicleFixedCost != nil {
		options.LocalVehicleFixedCost = *in.LocalVehicleFixedCost
	}
	if in.LocalVehicleCostPerHour != nil {
		options.LocalVehicleCostPerHour = *in.LocalVehicleCostPerHour
	}
	if in.LocalVehicleCostPerKilometer != nil {
		options.LocalVehicleCostPerKilometer = *in.LocalVehicleCostPerKilometer
	}
	if in.MinAverageShipmentsPerRound != nil {
		options.MinAverageShipmentsPerRound = *in.MinAverageShipmentsPerRound
	}
	options.TravelModeInMergedTransitions = in.TravelModeInMergedTransitions
	options.UseStartTimesInRefinementHint = in.UseStartTimesInRefinementHint

	return options
}
