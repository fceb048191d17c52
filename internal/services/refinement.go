package services

import (
	"fmt"
	"time"

	"twostep-routing-service/internal/solver"
)

// Cost per hour of deviating from a refined sequence's observed start
// and end times. Steep enough to dominate every other coefficient so the
// re-optimized rounds stay anchored in the global schedule.
const refinementSoftTimeWindowCostPerHour = 1_000_000

// ConsecutiveParkingVisits is a run of two or more back-to-back global
// visits to the same parking location, with no break in between. Such a
// run can be re-optimized jointly once the global schedule is known.
type ConsecutiveParkingVisits struct {
	ParkingTag            string
	GlobalRouteIndex      int
	FirstGlobalVisitIndex int
	NumGlobalVisits       int
	// LocalRouteIndices are the local routes behind each global visit of
	// the run, in visit order.
	LocalRouteIndices []int
}

// FindConsecutiveParkingVisits scans the global solution for refinable
// runs. A direct visit, a visit to a different parking, or a break
// between visits terminates the current run.
func (p *Planner) FindConsecutiveParkingVisits(
	localResponse, globalResponse *solver.Response,
) ([]ConsecutiveParkingVisits, error) {
	var sequences []ConsecutiveParkingVisits

	for routeIndex := range globalResponse.Routes {
		route := &globalResponse.Routes[routeIndex]

		var run *ConsecutiveParkingVisits
		flush := func() {
			if run != nil && run.NumGlobalVisits >= 2 {
				sequences = append(sequences, *run)
			}
			run = nil
		}

		for visitIndex := range route.Visits {
			visit := &route.Visits[visitIndex]

			// A break on the transition into this visit splits the run.
			if visitIndex < len(route.Transitions) &&
				unwrapDuration(route.Transitions[visitIndex].BreakDuration) > 0 {
				flush()
			}

			ref, err := ParseGlobalShipmentLabel(visit.ShipmentLabel)
			if err != nil {
				return nil, fmt.Errorf("find consecutive parking visits: %w: %v", ErrInconsistentData, err)
			}
			if ref.Kind != ParkingRoundShipment {
				flush()
				continue
			}
			if ref.Index < 0 || ref.Index >= len(localResponse.Routes) {
				return nil, fmt.Errorf(
					"find consecutive parking visits: %w: local route %d out of range",
					ErrInconsistentData, ref.Index,
				)
			}
			tag, err := ParseLocalVehicleLabelTag(localResponse.Routes[ref.Index].VehicleLabel)
			if err != nil {
				return nil, fmt.Errorf("find consecutive parking visits: %w: %v", ErrInconsistentData, err)
			}

			if run != nil && run.ParkingTag != tag {
				flush()
			}
			if run == nil {
				run = &ConsecutiveParkingVisits{
					ParkingTag:            tag,
					GlobalRouteIndex:      routeIndex,
					FirstGlobalVisitIndex: visitIndex,
				}
			}
			run.NumGlobalVisits++
			run.LocalRouteIndices = append(run.LocalRouteIndices, ref.Index)
		}
		flush()
	}

	return sequences, nil
}

// MakeLocalRefinementRequest builds one pickup-and-delivery sub-model
// covering every refinable run of the global solution: per run a single
// vehicle whose load limits force the solver into back-to-back rounds,
// with a first-solution hint reproducing the original partition. Returns
// a nil request when there is nothing to refine.
func (p *Planner) MakeLocalRefinementRequest(
	localResponse, globalResponse *solver.Response,
) (*solver.Request, []ConsecutiveParkingVisits, error) {
	sequences, err := p.FindConsecutiveParkingVisits(localResponse, globalResponse)
	if err != nil {
		return nil, nil, err
	}
	if len(sequences) == 0 {
		return nil, nil, nil
	}

	model := &p.request.Model
	var vehicles []solver.Vehicle
	var shipments []solver.Shipment
	var attributes []solver.TransitionAttributes
	var hints []solver.ShipmentRoute
	attributedParkings := make(map[string]struct{})

	for _, seq := range sequences {
		parking, err := p.parkingByTag(seq.ParkingTag)
		if err != nil {
			return nil, nil, fmt.Errorf("make refinement request: %w", err)
		}

		vehicleIndex := len(vehicles)
		vehicle, err := p.makeRefinementVehicle(seq, parking, localResponse, globalResponse)
		if err != nil {
			return nil, nil, fmt.Errorf("make refinement request: %w", err)
		}
		vehicles = append(vehicles, *vehicle)

		hint := solver.ShipmentRoute{
			VehicleIndex: vehicleIndex,
			VehicleLabel: vehicle.Label,
		}

		globalRoute := &globalResponse.Routes[seq.GlobalRouteIndex]
		for round, localRouteIndex := range seq.LocalRouteIndices {
			local := &localResponse.Routes[localRouteIndex]
			globalVisit := &globalRoute.Visits[seq.FirstGlobalVisitIndex+round]

			var delta time.Duration
			if globalVisit.StartTime != nil && local.VehicleStartTime != nil {
				delta = globalVisit.StartTime.Sub(*local.VehicleStartTime)
			}

			roundFirstShipment := len(shipments)
			for _, localVisit := range local.Visits {
				baseIndex, err := ParseLocalShipmentLabel(localVisit.ShipmentLabel)
				if err != nil {
					return nil, nil, fmt.Errorf(
						"make refinement request: %w: local route %q: %v",
						ErrInconsistentData, local.VehicleLabel, err,
					)
				}
				base, err := p.baseShipment(baseIndex)
				if err != nil {
					return nil, nil, fmt.Errorf("make refinement request: %w", err)
				}
				refined, err := makeRefinementShipment(base, baseIndex, parking, vehicleIndex)
				if err != nil {
					return nil, nil, fmt.Errorf("make refinement request: %w", err)
				}

				// Pickup hint visits come first; the matching delivery
				// hints follow below in original visit order.
				hintVisit := solver.Visit{
					ShipmentIndex: len(shipments),
					ShipmentLabel: refined.Label,
					IsPickup:      true,
				}
				if p.options.UseStartTimesInRefinementHint {
					hintVisit.StartTime = globalVisit.StartTime
				}
				hint.Visits = append(hint.Visits, hintVisit)

				shipments = append(shipments, refined)
			}

			for j, localVisit := range local.Visits {
				hintVisit := solver.Visit{
					ShipmentIndex: roundFirstShipment + j,
					ShipmentLabel: shipments[roundFirstShipment+j].Label,
				}
				if p.options.UseStartTimesInRefinementHint {
					hintVisit.StartTime = shiftTime(localVisit.StartTime, delta)
				}
				hint.Visits = append(hint.Visits, hintVisit)
			}
		}

		hints = append(hints, hint)

		if durationNonZero(parking.ReloadDuration) || parking.ReloadCost != 0 {
			if _, done := attributedParkings[parking.Tag]; !done {
				attributedParkings[parking.Tag] = struct{}{}
				// Charged when returning to the parking between rounds;
				// the vehicle's start tag exempts the first round.
				attributes = append(attributes, solver.TransitionAttributes{
					ExcludedSrcTag: parking.Tag,
					DstTag:         parking.Tag,
					Cost:           parking.ReloadCost,
					Delay:          parking.ReloadDuration,
				})
			}
		}
	}

	return &solver.Request{
		Label:                       subRequestLabel(p.request.Label, "refinement"),
		SearchMode:                  p.request.SearchMode,
		Timeout:                     p.request.Timeout,
		InjectedFirstSolutionRoutes: hints,
		Model: solver.Model{
			GlobalStartTime:      model.GlobalStartTime,
			GlobalEndTime:        model.GlobalEndTime,
			Shipments:            shipments,
			Vehicles:             vehicles,
			TransitionAttributes: attributes,
		},
	}, sequences, nil
}

// makeRefinementVehicle synthesizes the single vehicle of one refinable
// sequence, soft-pinned to the sequence's observed start and end times.
func (p *Planner) makeRefinementVehicle(
	seq ConsecutiveParkingVisits,
	parking *ParkingLocation,
	localResponse, globalResponse *solver.Response,
) (*solver.Vehicle, error) {
	globalRoute := &globalResponse.Routes[seq.GlobalRouteIndex]
	firstVisit := &globalRoute.Visits[seq.FirstGlobalVisitIndex]
	lastVisit := &globalRoute.Visits[seq.FirstGlobalVisitIndex+seq.NumGlobalVisits-1]
	if firstVisit.StartTime == nil || lastVisit.StartTime == nil {
		return nil, fmt.Errorf(
			"%w: global route %d visits in refinable sequence have no start times",
			ErrInconsistentData, seq.GlobalRouteIndex,
		)
	}

	lastLocal := &localResponse.Routes[seq.LocalRouteIndices[len(seq.LocalRouteIndices)-1]]
	seqStart := *firstVisit.StartTime
	seqEnd := lastVisit.StartTime.Add(lastLocal.Duration().Duration)

	vehicle := p.makeRoundVehicle(parking, "", 0)
	vehicle.Label = MakeRefinementVehicleLabel(RefinementVehicleRef{
		GlobalRouteIndex:      seq.GlobalRouteIndex,
		FirstGlobalVisitIndex: seq.FirstGlobalVisitIndex,
		NumGlobalVisits:       seq.NumGlobalVisits,
		ParkingTag:            seq.ParkingTag,
	})
	// The sequence is one long multi-round tour, so the per-round
	// duration limit does not apply to the whole vehicle.
	vehicle.RouteDurationLimit = nil
	vehicle.StartTimeWindows = []solver.TimeWindow{softPinnedWindow(seqStart)}
	vehicle.EndTimeWindows = []solver.TimeWindow{softPinnedWindow(seqEnd)}
	return &vehicle, nil
}

func softPinnedWindow(t time.Time) solver.TimeWindow {
	pinned := t
	return solver.TimeWindow{
		SoftStartTime:                  &pinned,
		SoftEndTime:                    &pinned,
		CostPerHourBeforeSoftStartTime: refinementSoftTimeWindowCostPerHour,
		CostPerHourAfterSoftEndTime:    refinementSoftTimeWindowCostPerHour,
	}
}

// makeRefinementShipment turns one base shipment into a
// (pickup-at-parking, delivery-at-address) pair.
func makeRefinementShipment(
	base *solver.Shipment,
	baseIndex int,
	parking *ParkingLocation,
	vehicleIndex int,
) (solver.Shipment, error) {
	if len(base.Deliveries) != 1 {
		return solver.Shipment{}, fmt.Errorf(
			"%w: shipment %d has %d deliveries, parking-mapped shipments need exactly one",
			ErrInconsistentData, baseIndex, len(base.Deliveries),
		)
	}

	zero := solver.Duration{}
	return solver.Shipment{
		Label: MakeLocalShipmentLabel(baseIndex, base.Label),
		Pickups: []solver.VisitRequest{{
			ArrivalWaypoint: parking.Waypoint,
			Duration:        &zero,
			Tags:            []string{parking.Tag},
		}},
		Deliveries:            []solver.VisitRequest{base.Deliveries[0]},
		LoadDemands:           base.LoadDemands,
		AllowedVehicleIndices: []int{vehicleIndex},
	}, nil
}
