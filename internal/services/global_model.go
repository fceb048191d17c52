package services

import (
	"fmt"
	"sort"
	"time"

	"twostep-routing-service/internal/interval"
	"twostep-routing-service/internal/solver"
)

// MakeGlobalRequest builds the global model from a solved local model.
// Direct shipments are copied with "s:" labels; every non-empty local
// route is aggregated into one virtual shipment with a "p:" label whose
// duration is the round's total duration and whose constraints are
// monoid-reductions over the round's members. Global vehicles are the
// base vehicles, untouched.
func (p *Planner) MakeGlobalRequest(localResponse *solver.Response) (*solver.Request, error) {
	if localResponse == nil {
		return nil, fmt.Errorf("make global request: %w: local response is nil", ErrInconsistentData)
	}

	model := &p.request.Model

	shipments := make([]solver.Shipment, 0, len(p.directShipments)+len(localResponse.Routes))
	for _, index := range p.directShipments {
		direct := model.Shipments[index]
		direct.Label = MakeDirectShipmentLabel(index, model.Shipments[index].Label)
		shipments = append(shipments, direct)
	}

	attributes := append([]solver.TransitionAttributes(nil), model.TransitionAttributes...)
	attributedParkings := make(map[string]struct{})

	for routeIndex := range localResponse.Routes {
		route := &localResponse.Routes[routeIndex]
		if len(route.Visits) == 0 {
			continue
		}

		virtual, parking, err := p.makeVirtualShipment(routeIndex, route)
		if err != nil {
			return nil, fmt.Errorf("make global request: %w", err)
		}

		if parking.HasTransitionOverhead() {
			if _, done := attributedParkings[parking.Tag]; !done {
				attributedParkings[parking.Tag] = struct{}{}
				attributes = append(attributes, p.parkingTransitionAttributes(parking)...)
			}
		}

		shipments = append(shipments, virtual)
	}

	return &solver.Request{
		Label:      subRequestLabel(p.request.Label, "global"),
		SearchMode: p.request.SearchMode,
		Timeout:    p.request.Timeout,
		Model: solver.Model{
			GlobalStartTime:      model.GlobalStartTime,
			GlobalEndTime:        model.GlobalEndTime,
			Shipments:            shipments,
			Vehicles:             model.Vehicles,
			TransitionAttributes: attributes,
		},
	}, nil
}

// makeVirtualShipment aggregates one local route into the virtual
// shipment that represents it in the global model.
func (p *Planner) makeVirtualShipment(routeIndex int, route *solver.ShipmentRoute) (solver.Shipment, *ParkingLocation, error) {
	tag, err := ParseLocalVehicleLabelTag(route.VehicleLabel)
	if err != nil {
		return solver.Shipment{}, nil, fmt.Errorf("%w: %v", ErrInconsistentData, err)
	}
	parking, err := p.parkingByTag(tag)
	if err != nil {
		return solver.Shipment{}, nil, err
	}

	members := make([]*solver.Shipment, 0, len(route.Visits))
	memberLabels := make([]string, 0, len(route.Visits))
	for _, visit := range route.Visits {
		index, err := ParseLocalShipmentLabel(visit.ShipmentLabel)
		if err != nil {
			return solver.Shipment{}, nil, fmt.Errorf(
				"%w: local route %q: %v", ErrInconsistentData, route.VehicleLabel, err,
			)
		}
		base, err := p.baseShipment(index)
		if err != nil {
			return solver.Shipment{}, nil, err
		}
		members = append(members, base)
		memberLabels = append(memberLabels, base.Label)
	}

	timeWindows, err := p.propagateRouteTimeWindows(route)
	if err != nil {
		return solver.Shipment{}, nil, err
	}

	allowed, err := intersectAllowedVehicles(members)
	if err != nil {
		return solver.Shipment{}, nil, fmt.Errorf(
			"%w for local route %q", err, route.VehicleLabel,
		)
	}

	costs, costIndices := combineCostsPerVehicle(members, len(p.request.Model.Vehicles))

	tags := []string{parking.Tag}
	if parking.HasTransitionOverhead() {
		tags = append(tags, p.tags.transitionTag(parking.Tag))
	}

	duration := route.Duration()
	return solver.Shipment{
		Label: MakeParkingRoundShipmentLabel(routeIndex, memberLabels),
		Deliveries: []solver.VisitRequest{{
			ArrivalWaypoint: parking.Waypoint,
			Duration:        &duration,
			TimeWindows:     timeWindows,
			Tags:            tags,
		}},
		LoadDemands:            sumLoadDemands(members),
		AllowedVehicleIndices:  allowed,
		CostsPerVehicle:        costs,
		CostsPerVehicleIndices: costIndices,
		PenaltyCost:            combinePenaltyCost(members),
	}, parking, nil
}

// propagateRouteTimeWindows projects each visit's delivery time window
// back to the route start by its cumulative offset, clamps it to the
// model's global bounds and intersects across all visits. A visit with
// no hard window contributes no constraint; an empty intersection is a
// fatal inconsistency.
func (p *Planner) propagateRouteTimeWindows(route *solver.ShipmentRoute) ([]solver.TimeWindow, error) {
	if route.VehicleStartTime == nil {
		return nil, fmt.Errorf(
			"%w: local route %q has no vehicle start time", ErrInconsistentData, route.VehicleLabel,
		)
	}

	globalStart := p.request.Model.GlobalStart()
	globalEnd := p.request.Model.GlobalEnd()

	current := []interval.Interval[time.Time]{{Start: globalStart, End: globalEnd}}
	constrained := false

	for _, visit := range route.Visits {
		index, err := ParseLocalShipmentLabel(visit.ShipmentLabel)
		if err != nil {
			return nil, fmt.Errorf("%w: local route %q: %v", ErrInconsistentData, route.VehicleLabel, err)
		}
		base, err := p.baseShipment(index)
		if err != nil {
			return nil, err
		}
		if len(base.Deliveries) != 1 {
			return nil, fmt.Errorf(
				"%w: shipment %d has %d deliveries, parking-mapped shipments need exactly one",
				ErrInconsistentData, index, len(base.Deliveries),
			)
		}

		windows := base.Deliveries[0].TimeWindows
		if len(windows) == 0 {
			continue
		}
		if len(windows) > 1 {
			return nil, fmt.Errorf(
				"%w: shipment %d has multiple delivery time windows, which is unsupported",
				ErrInconsistentData, index,
			)
		}
		window := windows[0]
		if window.StartTime == nil && window.EndTime == nil {
			continue
		}
		if visit.StartTime == nil {
			return nil, fmt.Errorf(
				"%w: local route %q visit for shipment %d has no start time",
				ErrInconsistentData, route.VehicleLabel, index,
			)
		}

		// The cumulative offset of this visit from the round's start,
		// including prior visits and transit.
		offset := visit.StartTime.Sub(*route.VehicleStartTime)

		start := globalStart
		if window.StartTime != nil {
			start = window.StartTime.Add(-offset)
		}
		end := globalEnd
		if window.EndTime != nil {
			end = window.EndTime.Add(-offset)
		}
		if start.Before(globalStart) {
			start = globalStart
		}
		if end.After(globalEnd) {
			end = globalEnd
		}

		current = interval.Intersect(
			current,
			[]interval.Interval[time.Time]{{Start: start, End: end}},
			time.Time.Compare,
		)
		if len(current) == 0 {
			return nil, fmt.Errorf(
				"%w: empty time window intersection on local route %q at shipment %d",
				ErrInconsistentData, route.VehicleLabel, index,
			)
		}
		constrained = true
	}

	if !constrained {
		return nil, nil
	}
	if len(current) == 1 && current[0].Start.Equal(globalStart) && current[0].End.Equal(globalEnd) {
		return nil, nil
	}

	windows := make([]solver.TimeWindow, 0, len(current))
	for _, iv := range current {
		var window solver.TimeWindow
		if !iv.Start.Equal(globalStart) {
			start := iv.Start
			window.StartTime = &start
		}
		if !iv.End.Equal(globalEnd) {
			end := iv.End
			window.EndTime = &end
		}
		windows = append(windows, window)
	}
	return windows, nil
}

// parkingTransitionAttributes emits the arrival, departure and reload
// records of one parking location, keyed by its allocated transition
// tag. Only components with a non-zero delay or cost produce a record.
func (p *Planner) parkingTransitionAttributes(parking *ParkingLocation) []solver.TransitionAttributes {
	tag := p.tags.transitionTag(parking.Tag)

	var records []solver.TransitionAttributes
	if durationNonZero(parking.ArrivalDuration) || parking.ArrivalCost != 0 {
		records = append(records, solver.TransitionAttributes{
			ExcludedSrcTag: tag,
			DstTag:         tag,
			Cost:           parking.ArrivalCost,
			Delay:          parking.ArrivalDuration,
		})
	}
	if durationNonZero(parking.DepartureDuration) || parking.DepartureCost != 0 {
		records = append(records, solver.TransitionAttributes{
			SrcTag:         tag,
			ExcludedDstTag: tag,
			Cost:           parking.DepartureCost,
			Delay:          parking.DepartureDuration,
		})
	}
	if durationNonZero(parking.ReloadDuration) || parking.ReloadCost != 0 {
		records = append(records, solver.TransitionAttributes{
			SrcTag: tag,
			DstTag: tag,
			Cost:   parking.ReloadCost,
			Delay:  parking.ReloadDuration,
		})
	}
	return records
}

// sumLoadDemands adds member demands per load unit.
func sumLoadDemands(members []*solver.Shipment) map[string]solver.Load {
	totals := make(map[string]solver.Load)
	for _, member := range members {
		for unit, load := range member.LoadDemands {
			current := totals[unit]
			current.Amount += load.Amount
			totals[unit] = current
		}
	}
	if len(totals) == 0 {
		return nil
	}
	return totals
}

// combinePenaltyCost sums member penalties. Any member without a penalty
// is mandatory and makes the whole group mandatory (nil).
func combinePenaltyCost(members []*solver.Shipment) *float64 {
	total := 0.0
	for _, member := range members {
		if member.PenaltyCost == nil {
			return nil
		}
		total += *member.PenaltyCost
	}
	return &total
}

// intersectAllowedVehicles intersects member allowed-vehicle sets. A
// member with no restriction allows all vehicles; the result is nil when
// no member restricts. An empty intersection is a fatal inconsistency.
func intersectAllowedVehicles(members []*solver.Shipment) ([]int, error) {
	var allowed map[int]struct{}
	for _, member := range members {
		if member.AllowedVehicleIndices == nil {
			continue
		}
		memberSet := make(map[int]struct{}, len(member.AllowedVehicleIndices))
		for _, index := range member.AllowedVehicleIndices {
			memberSet[index] = struct{}{}
		}
		if allowed == nil {
			allowed = memberSet
			continue
		}
		for index := range allowed {
			if _, ok := memberSet[index]; !ok {
				delete(allowed, index)
			}
		}
	}

	if allowed == nil {
		return nil, nil
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: empty allowed-vehicle intersection", ErrInconsistentData)
	}

	indices := make([]int, 0, len(allowed))
	for index := range allowed {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices, nil
}

// combineCostsPerVehicle takes the maximum per-vehicle cost override
// across members. A member without explicit indices applies its costs to
// vehicles 0..len(costs)-1.
func combineCostsPerVehicle(members []*solver.Shipment, numVehicles int) ([]float64, []int) {
	maxCost := make(map[int]float64)
	for _, member := range members {
		for i, cost := range member.CostsPerVehicle {
			index := i
			if len(member.CostsPerVehicleIndices) > 0 {
				if i >= len(member.CostsPerVehicleIndices) {
					break
				}
				index = member.CostsPerVehicleIndices[i]
			}
			if index < 0 || index >= numVehicles {
				continue
			}
			if current, ok := maxCost[index]; !ok || cost > current {
				maxCost[index] = cost
			}
		}
	}

	if len(maxCost) == 0 {
		return nil, nil
	}

	indices := make([]int, 0, len(maxCost))
	for index := range maxCost {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	costs := make([]float64, len(indices))
	for i, index := range indices {
		costs[i] = maxCost[index]
	}
	return costs, indices
}
