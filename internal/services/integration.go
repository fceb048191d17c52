package services

import (
	"fmt"
	"sort"
	"time"

	"twostep-routing-service/internal/solver"
)

// IntegratedModels are the revised local and global models produced by
// folding a refinement solution back in. The global request carries an
// injected first solution mirroring the original routes, so the re-solve
// starts from a known-good plan.
type IntegratedModels struct {
	LocalRequest  *solver.Request
	LocalResponse *solver.Response
	GlobalRequest *solver.Request
}

// refinedRound is one out-and-back courier round recovered from a
// refinement route.
type refinedRound struct {
	visits      []solver.Visit
	transitions []solver.Transition
	start       time.Time
	end         time.Time
}

type refinedSequence struct {
	ref           RefinementVehicleRef
	parking       *ParkingLocation
	retiredRoutes []int
	rounds        []refinedRound
	// newRouteIndices are filled while building the integrated local
	// solution.
	newRouteIndices []int
}

// IntegrateLocalRefinement splices the refined rounds into copies of the
// local and global models. Local routes untouched by refinement are
// carried over first, in their original order; the refined sequences'
// routes are replaced by the new rounds appended after them. The revised
// global request is produced by the regular global builder, so all "p:"
// labels are renumbered consistently.
func (p *Planner) IntegrateLocalRefinement(
	localRequest *solver.Request,
	localResponse *solver.Response,
	globalResponse *solver.Response,
	refinementResponse *solver.Response,
) (*IntegratedModels, error) {
	if len(refinementResponse.SkippedShipments) > 0 {
		return nil, fmt.Errorf(
			"%w: refinement solution skipped %d shipments",
			ErrInconsistentData, len(refinementResponse.SkippedShipments),
		)
	}

	sequences, retired, err := p.collectRefinedSequences(globalResponse, refinementResponse)
	if err != nil {
		return nil, err
	}

	baseToLocal, err := localShipmentIndexByBase(localRequest)
	if err != nil {
		return nil, err
	}

	// Carry over every local route not retired by refinement, compacting
	// vehicle indices.
	var vehicles []solver.Vehicle
	var routes []solver.ShipmentRoute
	oldToNewRoute := make(map[int]int)

	for routeIndex := range localResponse.Routes {
		if _, gone := retired[routeIndex]; gone {
			continue
		}
		route := localResponse.Routes[routeIndex]
		if route.VehicleIndex < 0 || route.VehicleIndex >= len(localRequest.Model.Vehicles) {
			return nil, fmt.Errorf(
				"%w: local route %d references vehicle %d, model has %d",
				ErrInconsistentData, routeIndex, route.VehicleIndex, len(localRequest.Model.Vehicles),
			)
		}

		newIndex := len(vehicles)
		vehicles = append(vehicles, localRequest.Model.Vehicles[route.VehicleIndex])
		route.VehicleIndex = newIndex
		routes = append(routes, route)
		oldToNewRoute[routeIndex] = newIndex
	}

	// Append one vehicle and route per refined round.
	refinedShipmentVehicle := make(map[int]int)
	for s := range sequences {
		seq := &sequences[s]
		prefix := fmt.Sprintf(
			"%s [refinement global_route:%d start:%d]",
			seq.parking.Tag, seq.ref.GlobalRouteIndex, seq.ref.FirstGlobalVisitIndex,
		)

		for k := range seq.rounds {
			round := &seq.rounds[k]

			newIndex := len(vehicles)
			vehicle := p.makeRoundVehicle(seq.parking, prefix, k)
			vehicles = append(vehicles, vehicle)

			visits := make([]solver.Visit, len(round.visits))
			for j, visit := range round.visits {
				baseIndex, err := ParseLocalShipmentLabel(visit.ShipmentLabel)
				if err != nil {
					return nil, fmt.Errorf("%w: refined round visit: %v", ErrInconsistentData, err)
				}
				localIndex, ok := baseToLocal[baseIndex]
				if !ok {
					return nil, fmt.Errorf(
						"%w: refined round serves shipment %d, which is not in the local model",
						ErrInconsistentData, baseIndex,
					)
				}
				visit.ShipmentIndex = localIndex
				visit.IsPickup = false
				visits[j] = visit
				refinedShipmentVehicle[localIndex] = newIndex
			}

			start, end := round.start, round.end
			route := solver.ShipmentRoute{
				VehicleIndex:     newIndex,
				VehicleLabel:     vehicle.Label,
				VehicleStartTime: &start,
				VehicleEndTime:   &end,
				Visits:           visits,
				Transitions:      round.transitions,
			}
			metrics, err := computeRouteMetrics(&route, localRequest.Model.Shipments)
			if err != nil {
				return nil, err
			}
			route.Metrics = metrics

			routes = append(routes, route)
			seq.newRouteIndices = append(seq.newRouteIndices, newIndex)
		}
	}

	// Rebind shipments to the compacted and newly created vehicles.
	shipments := append([]solver.Shipment(nil), localRequest.Model.Shipments...)
	for i := range shipments {
		if vehicleIndex, ok := refinedShipmentVehicle[i]; ok {
			shipments[i].AllowedVehicleIndices = []int{vehicleIndex}
			continue
		}
		shipments[i].AllowedVehicleIndices = remapVehicleIndices(
			shipments[i].AllowedVehicleIndices, oldToNewRoute,
		)
	}

	integratedLocalRequest := *localRequest
	integratedLocalRequest.Model.Shipments = shipments
	integratedLocalRequest.Model.Vehicles = vehicles

	integratedLocalResponse := &solver.Response{
		Routes:           routes,
		SkippedShipments: localResponse.SkippedShipments,
		RequestLabel:     integratedLocalRequest.Label,
	}

	integratedGlobalRequest, err := p.MakeGlobalRequest(integratedLocalResponse)
	if err != nil {
		return nil, err
	}

	hints, err := p.buildGlobalSolutionHints(
		globalResponse, sequences, oldToNewRoute, integratedLocalResponse, integratedGlobalRequest,
	)
	if err != nil {
		return nil, err
	}
	integratedGlobalRequest.InjectedFirstSolutionRoutes = hints

	if err := p.checkIntegratedRoutes(globalResponse, hints, localResponse, integratedLocalResponse); err != nil {
		return nil, err
	}

	return &IntegratedModels{
		LocalRequest:  &integratedLocalRequest,
		LocalResponse: integratedLocalResponse,
		GlobalRequest: integratedGlobalRequest,
	}, nil
}

// collectRefinedSequences parses the refinement solution back into the
// sequences it was built for and splits each route into rounds.
func (p *Planner) collectRefinedSequences(
	globalResponse, refinementResponse *solver.Response,
) ([]refinedSequence, map[int]struct{}, error) {
	sequences := make([]refinedSequence, 0, len(refinementResponse.Routes))
	retired := make(map[int]struct{})

	for routeIndex := range refinementResponse.Routes {
		route := &refinementResponse.Routes[routeIndex]
		ref, err := ParseRefinementVehicleLabel(route.VehicleLabel)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInconsistentData, err)
		}
		parking, err := p.parkingByTag(ref.ParkingTag)
		if err != nil {
			return nil, nil, err
		}
		if ref.GlobalRouteIndex < 0 || ref.GlobalRouteIndex >= len(globalResponse.Routes) {
			return nil, nil, fmt.Errorf(
				"%w: refinement vehicle %q references global route %d, solution has %d",
				ErrInconsistentData, route.VehicleLabel, ref.GlobalRouteIndex, len(globalResponse.Routes),
			)
		}

		globalRoute := &globalResponse.Routes[ref.GlobalRouteIndex]
		if ref.FirstGlobalVisitIndex < 0 ||
			ref.FirstGlobalVisitIndex+ref.NumGlobalVisits > len(globalRoute.Visits) {
			return nil, nil, fmt.Errorf(
				"%w: refinement vehicle %q visit range out of bounds",
				ErrInconsistentData, route.VehicleLabel,
			)
		}

		seq := refinedSequence{ref: ref, parking: parking}
		for i := 0; i < ref.NumGlobalVisits; i++ {
			visit := &globalRoute.Visits[ref.FirstGlobalVisitIndex+i]
			parsed, err := ParseGlobalShipmentLabel(visit.ShipmentLabel)
			if err != nil || parsed.Kind != ParkingRoundShipment {
				return nil, nil, fmt.Errorf(
					"%w: refinement vehicle %q covers non-parking visit %q",
					ErrInconsistentData, route.VehicleLabel, visit.ShipmentLabel,
				)
			}
			seq.retiredRoutes = append(seq.retiredRoutes, parsed.Index)
			retired[parsed.Index] = struct{}{}
		}

		rounds, err := splitRefinedRoute(route)
		if err != nil {
			return nil, nil, err
		}
		seq.rounds = rounds

		sequences = append(sequences, seq)
	}

	return sequences, retired, nil
}

// splitRefinedRoute cuts a refinement route into rounds. Each run of
// pickup visits marks the start of a new round; the transition after a
// round's last delivery, up to and including the next pickup run,
// belongs to that round. A route must not end on a pickup.
func splitRefinedRoute(route *solver.ShipmentRoute) ([]refinedRound, error) {
	visits := route.Visits
	if len(visits) == 0 {
		return nil, fmt.Errorf(
			"%w: refinement route %q has no visits", ErrInconsistentData, route.VehicleLabel,
		)
	}
	if len(route.Transitions) != len(visits)+1 {
		return nil, fmt.Errorf(
			"%w: refinement route %q has %d visits but %d transitions",
			ErrInconsistentData, route.VehicleLabel, len(visits), len(route.Transitions),
		)
	}
	if !visits[0].IsPickup {
		return nil, fmt.Errorf(
			"%w: refinement route %q does not start with a pickup",
			ErrInconsistentData, route.VehicleLabel,
		)
	}
	if visits[len(visits)-1].IsPickup {
		return nil, fmt.Errorf(
			"%w: refinement route %q ends on a pickup", ErrInconsistentData, route.VehicleLabel,
		)
	}
	if route.VehicleEndTime == nil {
		return nil, fmt.Errorf(
			"%w: refinement route %q has no vehicle end time", ErrInconsistentData, route.VehicleLabel,
		)
	}

	var roundStarts []int
	for i := range visits {
		if visits[i].IsPickup && (i == 0 || !visits[i-1].IsPickup) {
			roundStarts = append(roundStarts, i)
		}
	}

	rounds := make([]refinedRound, 0, len(roundStarts))
	for r, startIndex := range roundStarts {
		endExclusive := len(visits)
		if r+1 < len(roundStarts) {
			endExclusive = roundStarts[r+1]
		}

		firstDelivery := startIndex
		for firstDelivery < endExclusive && visits[firstDelivery].IsPickup {
			firstDelivery++
		}
		for i := firstDelivery; i < endExclusive; i++ {
			if visits[i].IsPickup {
				return nil, fmt.Errorf(
					"%w: refinement route %q interleaves pickups and deliveries within a round",
					ErrInconsistentData, route.VehicleLabel,
				)
			}
		}
		if firstDelivery == endExclusive {
			return nil, fmt.Errorf(
				"%w: refinement route %q has a round with no deliveries",
				ErrInconsistentData, route.VehicleLabel,
			)
		}
		if visits[startIndex].StartTime == nil {
			return nil, fmt.Errorf(
				"%w: refinement route %q pickup has no start time",
				ErrInconsistentData, route.VehicleLabel,
			)
		}

		end := *route.VehicleEndTime
		if r+1 < len(roundStarts) {
			next := visits[roundStarts[r+1]].StartTime
			if next == nil {
				return nil, fmt.Errorf(
					"%w: refinement route %q pickup has no start time",
					ErrInconsistentData, route.VehicleLabel,
				)
			}
			end = *next
		}

		rounds = append(rounds, refinedRound{
			visits:      append([]solver.Visit(nil), visits[firstDelivery:endExclusive]...),
			transitions: append([]solver.Transition(nil), route.Transitions[firstDelivery:endExclusive+1]...),
			start:       *visits[startIndex].StartTime,
			end:         end,
		})
	}

	return rounds, nil
}

// buildGlobalSolutionHints mirrors the original global routes in the
// integrated model's shipment numbering, substituting each refined
// sequence with its replacement rounds.
func (p *Planner) buildGlobalSolutionHints(
	globalResponse *solver.Response,
	sequences []refinedSequence,
	oldToNewRoute map[int]int,
	integratedLocalResponse *solver.Response,
	integratedGlobalRequest *solver.Request,
) ([]solver.ShipmentRoute, error) {
	directIndex := make(map[int]int, len(p.directShipments))
	for position, baseIndex := range p.directShipments {
		directIndex[baseIndex] = position
	}

	// Virtual shipments follow the directs, one per non-empty route, in
	// route order.
	virtualIndex := make(map[int]int)
	next := len(p.directShipments)
	for routeIndex := range integratedLocalResponse.Routes {
		if len(integratedLocalResponse.Routes[routeIndex].Visits) == 0 {
			continue
		}
		virtualIndex[routeIndex] = next
		next++
	}

	sequenceAt := make(map[[2]int]*refinedSequence)
	for s := range sequences {
		seq := &sequences[s]
		sequenceAt[[2]int{seq.ref.GlobalRouteIndex, seq.ref.FirstGlobalVisitIndex}] = seq
	}

	shipmentLabel := func(index int) (string, error) {
		if index < 0 || index >= len(integratedGlobalRequest.Model.Shipments) {
			return "", fmt.Errorf(
				"%w: integrated global shipment %d out of range", ErrInconsistentData, index,
			)
		}
		return integratedGlobalRequest.Model.Shipments[index].Label, nil
	}

	hints := make([]solver.ShipmentRoute, 0, len(globalResponse.Routes))
	for routeIndex := range globalResponse.Routes {
		route := &globalResponse.Routes[routeIndex]
		hint := solver.ShipmentRoute{
			VehicleIndex: route.VehicleIndex,
			VehicleLabel: route.VehicleLabel,
		}

		appendHintVisit := func(shipmentIndex int) error {
			label, err := shipmentLabel(shipmentIndex)
			if err != nil {
				return err
			}
			hint.Visits = append(hint.Visits, solver.Visit{
				ShipmentIndex: shipmentIndex,
				ShipmentLabel: label,
			})
			return nil
		}

		for i := 0; i < len(route.Visits); {
			ref, err := ParseGlobalShipmentLabel(route.Visits[i].ShipmentLabel)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInconsistentData, err)
			}

			switch ref.Kind {
			case DirectShipment:
				position, ok := directIndex[ref.Index]
				if !ok {
					return nil, fmt.Errorf(
						"%w: global visit serves shipment %d, which is not a direct shipment",
						ErrInconsistentData, ref.Index,
					)
				}
				if err := appendHintVisit(position); err != nil {
					return nil, err
				}
				i++

			case ParkingRoundShipment:
				if seq, ok := sequenceAt[[2]int{routeIndex, i}]; ok {
					for _, newRouteIndex := range seq.newRouteIndices {
						shipmentIndex, ok := virtualIndex[newRouteIndex]
						if !ok {
							return nil, fmt.Errorf(
								"%w: refined round route %d produced no virtual shipment",
								ErrInconsistentData, newRouteIndex,
							)
						}
						if err := appendHintVisit(shipmentIndex); err != nil {
							return nil, err
						}
					}
					i += seq.ref.NumGlobalVisits
					continue
				}

				newRouteIndex, ok := oldToNewRoute[ref.Index]
				if !ok {
					return nil, fmt.Errorf(
						"%w: local route %d was retired but not covered by a refined sequence",
						ErrInconsistentData, ref.Index,
					)
				}
				shipmentIndex, ok := virtualIndex[newRouteIndex]
				if !ok {
					return nil, fmt.Errorf(
						"%w: carried-over local route %d produced no virtual shipment",
						ErrInconsistentData, newRouteIndex,
					)
				}
				if err := appendHintVisit(shipmentIndex); err != nil {
					return nil, err
				}
				i++
			}
		}

		hints = append(hints, hint)
	}

	return hints, nil
}

// checkIntegratedRoutes verifies that, per vehicle, the integrated plan
// serves the same multiset of base shipments as the original global
// solution. This is a best-effort diagnostic, not a route equivalence
// proof.
func (p *Planner) checkIntegratedRoutes(
	globalResponse *solver.Response,
	hints []solver.ShipmentRoute,
	localResponse *solver.Response,
	integratedLocalResponse *solver.Response,
) error {
	if len(hints) != len(globalResponse.Routes) {
		return fmt.Errorf(
			"%w: integrated plan has %d routes, original has %d",
			ErrInconsistentData, len(hints), len(globalResponse.Routes),
		)
	}

	expand := func(visits []solver.Visit, local *solver.Response) ([]int, error) {
		var baseIndices []int
		for i := range visits {
			ref, err := ParseGlobalShipmentLabel(visits[i].ShipmentLabel)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInconsistentData, err)
			}
			switch ref.Kind {
			case DirectShipment:
				baseIndices = append(baseIndices, ref.Index)
			case ParkingRoundShipment:
				if ref.Index < 0 || ref.Index >= len(local.Routes) {
					return nil, fmt.Errorf(
						"%w: local route %d out of range", ErrInconsistentData, ref.Index,
					)
				}
				for _, localVisit := range local.Routes[ref.Index].Visits {
					baseIndex, err := ParseLocalShipmentLabel(localVisit.ShipmentLabel)
					if err != nil {
						return nil, fmt.Errorf("%w: %v", ErrInconsistentData, err)
					}
					baseIndices = append(baseIndices, baseIndex)
				}
			}
		}
		sort.Ints(baseIndices)
		return baseIndices, nil
	}

	for routeIndex := range globalResponse.Routes {
		original, err := expand(globalResponse.Routes[routeIndex].Visits, localResponse)
		if err != nil {
			return err
		}
		integrated, err := expand(hints[routeIndex].Visits, integratedLocalResponse)
		if err != nil {
			return err
		}

		if len(original) != len(integrated) {
			return fmt.Errorf(
				"%w: vehicle %q serves %d shipments after integration, expected %d",
				ErrInconsistentData, globalResponse.Routes[routeIndex].VehicleLabel,
				len(integrated), len(original),
			)
		}
		for i := range original {
			if original[i] != integrated[i] {
				return fmt.Errorf(
					"%w: vehicle %q serves a different shipment set after integration",
					ErrInconsistentData, globalResponse.Routes[routeIndex].VehicleLabel,
				)
			}
		}
	}

	return nil
}

// localShipmentIndexByBase indexes local-model shipments by the base
// shipment they were derived from.
func localShipmentIndexByBase(localRequest *solver.Request) (map[int]int, error) {
	byBase := make(map[int]int, len(localRequest.Model.Shipments))
	for i := range localRequest.Model.Shipments {
		baseIndex, err := ParseLocalShipmentLabel(localRequest.Model.Shipments[i].Label)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInconsistentData, err)
		}
		byBase[baseIndex] = i
	}
	return byBase, nil
}

func remapVehicleIndices(indices []int, mapping map[int]int) []int {
	if indices == nil {
		return nil
	}
	remapped := make([]int, 0, len(indices))
	for _, index := range indices {
		if newIndex, ok := mapping[index]; ok {
			remapped = append(remapped, newIndex)
		}
	}
	return remapped
}
