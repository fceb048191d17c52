package services

import (
	"fmt"

	"twostep-routing-service/internal/solver"
)

// Planner decomposes one base optimization request into a local model
// (courier rounds per parking location) and a global model (vehicle
// routes), and recomposes their independently solved solutions into one
// consistent plan.
//
// A Planner is built once per run. All builder methods are pure
// derivations of the immutable base request plus their arguments; the
// only mutable state is the transition-tag allocation cache, which is
// never accessed concurrently within one planning run.
type Planner struct {
	request    *solver.Request
	options    Options
	parkings   map[string]*ParkingLocation
	parkingFor map[int]string

	groups          []parkingGroup
	directShipments []int

	tags *tagAllocator
}

// NewPlanner validates the configuration and derives the parking groups.
// Configuration errors (duplicate tags, unknown tags, invalid shipment
// indices, inconsistent options) fail here and are never partially
// applied.
func NewPlanner(
	request *solver.Request,
	parkings []ParkingLocation,
	parkingForShipment map[int]string,
	options Options,
) (*Planner, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: request is nil", ErrInvalidConfig)
	}
	if err := options.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	byTag := make(map[string]*ParkingLocation, len(parkings))
	for i := range parkings {
		parking := &parkings[i]
		if err := parking.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if _, ok := byTag[parking.Tag]; ok {
			return nil, fmt.Errorf("%w: duplicate parking tag %q", ErrInvalidConfig, parking.Tag)
		}
		byTag[parking.Tag] = parking
	}

	groups, direct, err := buildParkingGroups(&request.Model, parkingForShipment, byTag, options.Grouping)
	if err != nil {
		return nil, err
	}

	return &Planner{
		request:         request,
		options:         options,
		parkings:        byTag,
		parkingFor:      parkingForShipment,
		groups:          groups,
		directShipments: direct,
		tags:            newTagAllocator(&request.Model),
	}, nil
}

// parkingByTag returns the parking location for a tag already validated
// at construction; unknown tags at this point indicate corrupted labels.
func (p *Planner) parkingByTag(tag string) (*ParkingLocation, error) {
	parking, ok := p.parkings[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown parking tag %q", ErrInconsistentData, tag)
	}
	return parking, nil
}

// baseShipment returns the base shipment at index with bounds checking.
func (p *Planner) baseShipment(index int) (*solver.Shipment, error) {
	if index < 0 || index >= len(p.request.Model.Shipments) {
		return nil, fmt.Errorf(
			"%w: shipment index %d out of range (model has %d shipments)",
			ErrInconsistentData, index, len(p.request.Model.Shipments),
		)
	}
	return &p.request.Model.Shipments[index], nil
}

// tagAllocator hands out transition-attribute tags that never collide
// with tags already present in the base model, memoizing one tag per
// parking location so repeated builder calls stay deterministic.
type tagAllocator struct {
	used      map[string]struct{}
	allocated map[string]string
}

func newTagAllocator(model *solver.Model) *tagAllocator {
	used := make(map[string]struct{})

	note := func(tags []string) {
		for _, tag := range tags {
			used[tag] = struct{}{}
		}
	}

	for i := range model.Shipments {
		shipment := &model.Shipments[i]
		for j := range shipment.Pickups {
			note(shipment.Pickups[j].Tags)
		}
		for j := range shipment.Deliveries {
			note(shipment.Deliveries[j].Tags)
		}
	}
	for i := range model.Vehicles {
		note(model.Vehicles[i].StartTags)
		note(model.Vehicles[i].EndTags)
	}
	for i := range model.TransitionAttributes {
		attrs := &model.TransitionAttributes[i]
		note([]string{attrs.SrcTag, attrs.ExcludedSrcTag, attrs.DstTag, attrs.ExcludedDstTag})
	}
	delete(used, "")

	return &tagAllocator{
		used:      used,
		allocated: make(map[string]string),
	}
}

// transitionTag returns the memoized transition tag for a parking
// location, allocating a fresh non-colliding one on first use.
func (a *tagAllocator) transitionTag(parkingTag string) string {
	if tag, ok := a.allocated[parkingTag]; ok {
		return tag
	}

	candidate := "parking: " + parkingTag
	for attempt := 2; ; attempt++ {
		if _, taken := a.used[candidate]; !taken {
			break
		}
		candidate = fmt.Sprintf("parking: %s #%d", parkingTag, attempt)
	}

	a.used[candidate] = struct{}{}
	a.allocated[parkingTag] = candidate
	return candidate
}
