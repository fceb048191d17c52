package services

import (
	"fmt"
	"time"

	"twostep-routing-service/internal/polyline"
	"twostep-routing-service/internal/solver"
)

// MergedPlan is the recomposed result: the base model extended with
// synthesized parking arrival/departure shipments, and one route per
// vehicle with real timestamps.
type MergedPlan struct {
	Request  *solver.Request
	Response *solver.Response
}

// MergeLocalAndGlobal stitches the local and global solutions into one
// plan. Each global "p:" visit expands into an arrival visit at the
// parking, the referenced local route's visits and transitions shifted
// into global time, a return transition and a departure visit. Direct
// visits are restored to their base shipment index and label.
func (p *Planner) MergeLocalAndGlobal(localResponse, globalResponse *solver.Response) (*MergedPlan, error) {
	if localResponse == nil || globalResponse == nil {
		return nil, fmt.Errorf("merge plans: %w: missing sub-solution", ErrInconsistentData)
	}

	shipments := append([]solver.Shipment(nil), p.request.Model.Shipments...)
	routes := make([]solver.ShipmentRoute, 0, len(globalResponse.Routes))

	for routeIndex := range globalResponse.Routes {
		route, err := p.mergeRoute(&globalResponse.Routes[routeIndex], localResponse, &shipments)
		if err != nil {
			return nil, fmt.Errorf("merge plans: route %d (%q): %w",
				routeIndex, globalResponse.Routes[routeIndex].VehicleLabel, err)
		}
		routes = append(routes, *route)
	}

	skipped, err := p.remapSkippedShipments(localResponse, globalResponse)
	if err != nil {
		return nil, fmt.Errorf("merge plans: %w", err)
	}

	mergedRequest := *p.request
	mergedRequest.Label = subRequestLabel(p.request.Label, "merged")
	mergedRequest.Model.Shipments = shipments

	return &MergedPlan{
		Request: &mergedRequest,
		Response: &solver.Response{
			Routes:           routes,
			SkippedShipments: skipped,
			RequestLabel:     mergedRequest.Label,
		},
	}, nil
}

func (p *Planner) mergeRoute(
	global *solver.ShipmentRoute,
	localResponse *solver.Response,
	shipments *[]solver.Shipment,
) (*solver.ShipmentRoute, error) {
	merged := &solver.ShipmentRoute{
		VehicleIndex:     global.VehicleIndex,
		VehicleLabel:     global.VehicleLabel,
		VehicleStartTime: global.VehicleStartTime,
		VehicleEndTime:   global.VehicleEndTime,
		Breaks:           global.Breaks,
		RouteTotalCost:   global.RouteTotalCost,
	}
	if len(global.Visits) == 0 {
		return merged, nil
	}
	if len(global.Transitions) != len(global.Visits)+1 {
		return nil, fmt.Errorf(
			"%w: global route has %d visits but %d transitions",
			ErrInconsistentData, len(global.Visits), len(global.Transitions),
		)
	}

	var vehicle *solver.Vehicle
	if global.VehicleIndex >= 0 && global.VehicleIndex < len(p.request.Model.Vehicles) {
		vehicle = &p.request.Model.Vehicles[global.VehicleIndex]
	}

	for i := range global.Visits {
		visit := &global.Visits[i]
		merged.Transitions = append(merged.Transitions, p.annotateVehicleTransition(global.Transitions[i], vehicle))

		ref, err := ParseGlobalShipmentLabel(visit.ShipmentLabel)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInconsistentData, err)
		}

		switch ref.Kind {
		case DirectShipment:
			base, err := p.baseShipment(ref.Index)
			if err != nil {
				return nil, err
			}
			restored := *visit
			restored.ShipmentIndex = ref.Index
			restored.ShipmentLabel = base.Label
			merged.Visits = append(merged.Visits, restored)

		case ParkingRoundShipment:
			if err := p.expandParkingVisit(merged, visit, ref.Index, localResponse, shipments); err != nil {
				return nil, err
			}
		}
	}
	merged.Transitions = append(merged.Transitions,
		p.annotateVehicleTransition(global.Transitions[len(global.Visits)], vehicle))

	metrics, err := computeRouteMetrics(merged, *shipments)
	if err != nil {
		return nil, err
	}
	merged.Metrics = metrics

	routePolyline, err := stitchRoutePolyline(merged.Transitions)
	if err != nil {
		return nil, err
	}
	merged.RoutePolyline = routePolyline

	return merged, nil
}

// expandParkingVisit replaces one global parking visit with the
// synthesized arrival visit, the time-shifted local round and the
// synthesized departure visit.
func (p *Planner) expandParkingVisit(
	merged *solver.ShipmentRoute,
	globalVisit *solver.Visit,
	localRouteIndex int,
	localResponse *solver.Response,
	shipments *[]solver.Shipment,
) error {
	if localRouteIndex < 0 || localRouteIndex >= len(localResponse.Routes) {
		return fmt.Errorf(
			"%w: global visit references local route %d, solution has %d routes",
			ErrInconsistentData, localRouteIndex, len(localResponse.Routes),
		)
	}
	local := &localResponse.Routes[localRouteIndex]
	if len(local.Breaks) > 0 {
		return fmt.Errorf(
			"%w: local route %q contains breaks", ErrInconsistentData, local.VehicleLabel,
		)
	}
	if len(local.Transitions) != len(local.Visits)+1 {
		return fmt.Errorf(
			"%w: local route %q has %d visits but %d transitions",
			ErrInconsistentData, local.VehicleLabel, len(local.Visits), len(local.Transitions),
		)
	}
	if globalVisit.StartTime == nil || local.VehicleStartTime == nil || local.VehicleEndTime == nil {
		return fmt.Errorf(
			"%w: missing timestamps expanding local route %q", ErrInconsistentData, local.VehicleLabel,
		)
	}

	tag, err := ParseLocalVehicleLabelTag(local.VehicleLabel)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistentData, err)
	}
	parking, err := p.parkingByTag(tag)
	if err != nil {
		return err
	}

	// Everything in the local round happened in local solution time;
	// shift it to when the vehicle actually reached the parking.
	delta := globalVisit.StartTime.Sub(*local.VehicleStartTime)

	arrivalIndex := appendSyntheticShipment(shipments, parking, " arrival")
	merged.Visits = append(merged.Visits, solver.Visit{
		ShipmentIndex: arrivalIndex,
		ShipmentLabel: (*shipments)[arrivalIndex].Label,
		StartTime:     globalVisit.StartTime,
		Detour:        globalVisit.Detour,
	})

	for j := range local.Visits {
		localVisit := &local.Visits[j]
		merged.Transitions = append(merged.Transitions,
			p.annotateParkingTransition(shiftTransition(local.Transitions[j], delta), parking))

		baseIndex, err := ParseLocalShipmentLabel(localVisit.ShipmentLabel)
		if err != nil {
			return fmt.Errorf("%w: local route %q: %v", ErrInconsistentData, local.VehicleLabel, err)
		}
		base, err := p.baseShipment(baseIndex)
		if err != nil {
			return err
		}
		if localVisit.StartTime == nil {
			return fmt.Errorf(
				"%w: local route %q visit %d has no start time",
				ErrInconsistentData, local.VehicleLabel, j,
			)
		}

		merged.Visits = append(merged.Visits, solver.Visit{
			ShipmentIndex: baseIndex,
			ShipmentLabel: base.Label,
			StartTime:     shiftTime(localVisit.StartTime, delta),
			Detour:        addDurations(globalVisit.Detour, localVisit.Detour),
		})
	}

	// Return leg to the parking, then the departure marker.
	merged.Transitions = append(merged.Transitions,
		p.annotateParkingTransition(shiftTransition(local.Transitions[len(local.Visits)], delta), parking))

	roundDuration := local.Duration()
	departureIndex := appendSyntheticShipment(shipments, parking, " departure")
	merged.Visits = append(merged.Visits, solver.Visit{
		ShipmentIndex: departureIndex,
		ShipmentLabel: (*shipments)[departureIndex].Label,
		StartTime:     shiftTime(local.VehicleEndTime, delta),
		Detour:        &roundDuration,
	})

	merged.RouteTotalCost += local.RouteTotalCost
	return nil
}

// appendSyntheticShipment adds a zero-duration arrival or departure
// marker shipment at the parking coordinates and returns its index.
func appendSyntheticShipment(shipments *[]solver.Shipment, parking *ParkingLocation, suffix string) int {
	zero := solver.Duration{}
	*shipments = append(*shipments, solver.Shipment{
		Label: parking.Tag + suffix,
		Deliveries: []solver.VisitRequest{{
			ArrivalWaypoint: parking.Waypoint,
			Duration:        &zero,
		}},
	})
	return len(*shipments) - 1
}

func (p *Planner) annotateVehicleTransition(t solver.Transition, vehicle *solver.Vehicle) solver.Transition {
	if p.options.TravelModeInMergedTransitions && vehicle != nil {
		t.TravelMode = vehicle.TravelMode
		t.TravelDurationMultiple = vehicle.TravelDurationMultiple
	}
	return t
}

func (p *Planner) annotateParkingTransition(t solver.Transition, parking *ParkingLocation) solver.Transition {
	if p.options.TravelModeInMergedTransitions {
		t.TravelMode = parking.TravelMode
		t.TravelDurationMultiple = parking.TravelDurationMultiple
	}
	return t
}

// remapSkippedShipments translates skip entries of both sub-solutions
// back to base shipment indices. A skipped parking round expands to all
// shipments of its local route.
func (p *Planner) remapSkippedShipments(localResponse, globalResponse *solver.Response) ([]solver.SkippedShipment, error) {
	var skipped []solver.SkippedShipment

	appendBase := func(index int) error {
		base, err := p.baseShipment(index)
		if err != nil {
			return err
		}
		skipped = append(skipped, solver.SkippedShipment{Index: index, Label: base.Label})
		return nil
	}

	for _, entry := range globalResponse.SkippedShipments {
		ref, err := ParseGlobalShipmentLabel(entry.Label)
		if err != nil {
			return nil, fmt.Errorf("%w: skipped shipment: %v", ErrInconsistentData, err)
		}
		switch ref.Kind {
		case DirectShipment:
			if err := appendBase(ref.Index); err != nil {
				return nil, err
			}
		case ParkingRoundShipment:
			if ref.Index < 0 || ref.Index >= len(localResponse.Routes) {
				return nil, fmt.Errorf(
					"%w: skipped shipment references local route %d, solution has %d routes",
					ErrInconsistentData, ref.Index, len(localResponse.Routes),
				)
			}
			for _, visit := range localResponse.Routes[ref.Index].Visits {
				index, err := ParseLocalShipmentLabel(visit.ShipmentLabel)
				if err != nil {
					return nil, fmt.Errorf("%w: skipped local route visit: %v", ErrInconsistentData, err)
				}
				if err := appendBase(index); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, entry := range localResponse.SkippedShipments {
		index, err := ParseLocalShipmentLabel(entry.Label)
		if err != nil {
			return nil, fmt.Errorf("%w: skipped local shipment: %v", ErrInconsistentData, err)
		}
		if err := appendBase(index); err != nil {
			return nil, err
		}
	}

	return skipped, nil
}

// computeRouteMetrics recomputes aggregate metrics from the stitched
// transitions and visits instead of trusting either sub-solution.
func computeRouteMetrics(route *solver.ShipmentRoute, shipments []solver.Shipment) (*solver.AggregatedMetrics, error) {
	var travel, wait, delay, breaks, visits time.Duration
	var distance float64

	for i := range route.Transitions {
		t := &route.Transitions[i]
		travel += unwrapDuration(t.TravelDuration)
		wait += unwrapDuration(t.WaitDuration)
		delay += unwrapDuration(t.DelayDuration)
		breaks += unwrapDuration(t.BreakDuration)
		distance += t.TravelDistanceMeters
	}

	for i := range route.Visits {
		visit := &route.Visits[i]
		if visit.ShipmentIndex < 0 || visit.ShipmentIndex >= len(shipments) {
			return nil, fmt.Errorf(
				"%w: merged visit references shipment %d, model has %d",
				ErrInconsistentData, visit.ShipmentIndex, len(shipments),
			)
		}
		shipment := &shipments[visit.ShipmentIndex]
		if len(shipment.Deliveries) > 0 && shipment.Deliveries[0].Duration != nil {
			visits += shipment.Deliveries[0].Duration.Duration
		}
	}

	metrics := &solver.AggregatedMetrics{
		PerformedShipmentCount: len(route.Visits),
		TravelDuration:         wrapDuration(travel),
		WaitDuration:           wrapDuration(wait),
		DelayDuration:          wrapDuration(delay),
		BreakDuration:          wrapDuration(breaks),
		VisitDuration:          wrapDuration(visits),
		TravelDistanceMeters:   distance,
	}
	if route.VehicleStartTime != nil && route.VehicleEndTime != nil {
		metrics.TotalDuration = wrapDuration(route.VehicleEndTime.Sub(*route.VehicleStartTime))
	}
	return metrics, nil
}

// stitchRoutePolyline concatenates per-transition polylines into one
// route geometry, dropping the duplicated point at shared endpoints.
func stitchRoutePolyline(transitions []solver.Transition) (*solver.EncodedPolyline, error) {
	var points []polyline.Point
	for i := range transitions {
		encoded := transitions[i].RoutePolyline
		if encoded == nil || encoded.Points == "" {
			continue
		}
		decoded, err := polyline.Decode(encoded.Points)
		if err != nil {
			return nil, fmt.Errorf("transition %d: %w", i, err)
		}
		if len(points) > 0 && len(decoded) > 0 && decoded[0] == points[len(points)-1] {
			decoded = decoded[1:]
		}
		points = append(points, decoded...)
	}

	if len(points) == 0 {
		return nil, nil
	}
	return &solver.EncodedPolyline{Points: polyline.Encode(points)}, nil
}

func shiftTime(t *time.Time, delta time.Duration) *time.Time {
	if t == nil {
		return nil
	}
	shifted := t.Add(delta)
	return &shifted
}

func shiftTransition(t solver.Transition, delta time.Duration) solver.Transition {
	t.StartTime = shiftTime(t.StartTime, delta)
	return t
}

func addDurations(a, b *solver.Duration) *solver.Duration {
	if a == nil && b == nil {
		return nil
	}
	sum := solver.FromDuration(unwrapDuration(a) + unwrapDuration(b))
	return &sum
}

func unwrapDuration(d *solver.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}

func wrapDuration(d time.Duration) *solver.Duration {
	wrapped := solver.FromDuration(d)
	return &wrapped
}
