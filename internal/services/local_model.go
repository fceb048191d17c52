package services

import (
	"fmt"

	"twostep-routing-service/internal/solver"
)

// MakeLocalRequest builds the local model: one sub-problem covering all
// courier rounds. Every parking group contributes
// ceil(groupSize / MinAverageShipmentsPerRound) synthesized round
// vehicles pinned to the parking waypoint, and one single-delivery
// shipment per member restricted to exactly those vehicles. Which round
// serves which shipment is left to the solver.
func (p *Planner) MakeLocalRequest() (*solver.Request, error) {
	model := &p.request.Model

	var vehicles []solver.Vehicle
	var shipments []solver.Shipment

	for _, group := range p.groups {
		parking, err := p.parkingByTag(group.key.parkingTag)
		if err != nil {
			return nil, fmt.Errorf("make local request: %w", err)
		}

		rounds := numRounds(len(group.shipmentIndices), p.options.MinAverageShipmentsPerRound)
		groupVehicles := make([]int, 0, rounds)
		for round := 0; round < rounds; round++ {
			groupVehicles = append(groupVehicles, len(vehicles))
			vehicles = append(vehicles, p.makeRoundVehicle(parking, group.label, round))
		}

		for _, index := range group.shipmentIndices {
			base, err := p.baseShipment(index)
			if err != nil {
				return nil, fmt.Errorf("make local request: %w", err)
			}
			local, err := makeLocalShipment(base, index, groupVehicles)
			if err != nil {
				return nil, fmt.Errorf("make local request: %w", err)
			}
			shipments = append(shipments, local)
		}
	}

	return &solver.Request{
		Label:      subRequestLabel(p.request.Label, "local"),
		SearchMode: p.request.SearchMode,
		Timeout:    p.request.Timeout,
		Model: solver.Model{
			GlobalStartTime: model.GlobalStartTime,
			GlobalEndTime:   model.GlobalEndTime,
			Shipments:       shipments,
			Vehicles:        vehicles,
		},
	}, nil
}

// makeRoundVehicle synthesizes one courier round vehicle. The fixed cost
// dominates so the solver opens as few rounds as possible.
func (p *Planner) makeRoundVehicle(parking *ParkingLocation, groupLabel string, round int) solver.Vehicle {
	return solver.Vehicle{
		Label:                  MakeLocalVehicleLabel(groupLabel, round),
		TravelMode:             parking.TravelMode,
		TravelDurationMultiple: parking.TravelDurationMultiple,
		StartWaypoint:          parking.Waypoint,
		EndWaypoint:            parking.Waypoint,
		StartTags:              []string{parking.Tag},
		EndTags:                []string{parking.Tag},
		FixedCost:              p.options.LocalVehicleFixedCost,
		CostPerHour:            p.options.LocalVehicleCostPerHour,
		CostPerKilometer:       p.options.LocalVehicleCostPerKilometer,
		LoadLimits:             parking.loadLimits(),
		RouteDurationLimit:     roundDurationLimit(parking),
	}
}

func roundDurationLimit(parking *ParkingLocation) *solver.DurationLimit {
	if parking.MaxRoundDuration == nil {
		return nil
	}
	return &solver.DurationLimit{MaxDuration: parking.MaxRoundDuration}
}

// makeLocalShipment turns one mapped base shipment into a local-model
// single-delivery visit. Tags, time windows and load demands are
// preserved verbatim from the base delivery.
func makeLocalShipment(base *solver.Shipment, baseIndex int, groupVehicles []int) (solver.Shipment, error) {
	if len(base.Pickups) != 0 {
		return solver.Shipment{}, fmt.Errorf(
			"%w: shipment %d has pickups and cannot be served from a parking location",
			ErrInconsistentData, baseIndex,
		)
	}
	if len(base.Deliveries) != 1 {
		return solver.Shipment{}, fmt.Errorf(
			"%w: shipment %d has %d deliveries, parking-mapped shipments need exactly one",
			ErrInconsistentData, baseIndex, len(base.Deliveries),
		)
	}

	return solver.Shipment{
		Label:                 MakeLocalShipmentLabel(baseIndex, base.Label),
		Deliveries:            []solver.VisitRequest{base.Deliveries[0]},
		LoadDemands:           base.LoadDemands,
		AllowedVehicleIndices: groupVehicles,
	}, nil
}

func subRequestLabel(base, phase string) string {
	if base == "" {
		return phase
	}
	return base + "/" + phase
}
