package services

import (
	"errors"
	"fmt"

	"twostep-routing-service/internal/solver"
)

// ParkingLocation is a spot where a vehicle stops so a courier can walk
// or bike the last stretch to nearby delivery addresses. Created once by
// the caller and immutable for the run.
type ParkingLocation struct {
	// Tag uniquely identifies the parking location. It also becomes a
	// visit tag in generated models, so it must not contain " [" or "/".
	Tag string

	// Waypoint is where round vehicles start and end.
	Waypoint *solver.Waypoint

	// TravelMode and TravelDurationMultiple describe the courier leg
	// (walking or biking speed relative to the default profile).
	TravelMode             solver.TravelMode
	TravelDurationMultiple *float64

	// DeliveryLoadLimits caps what a courier carries on one round, per
	// load unit.
	DeliveryLoadLimits map[string]int64

	// MaxRoundDuration limits one out-and-back courier round.
	MaxRoundDuration *solver.Duration

	// Optional costs and delays applied when a vehicle arrives at,
	// departs from, or reloads at the parking location.
	ArrivalDuration   *solver.Duration
	DepartureDuration *solver.Duration
	ReloadDuration    *solver.Duration
	ArrivalCost       float64
	DepartureCost     float64
	ReloadCost        float64
}

// HasTransitionOverhead reports whether the parking defines any non-zero
// arrival/departure/reload delay or cost, i.e. whether the global model
// needs transition attributes for it.
func (p *ParkingLocation) HasTransitionOverhead() bool {
	return durationNonZero(p.ArrivalDuration) || p.ArrivalCost != 0 ||
		durationNonZero(p.DepartureDuration) || p.DepartureCost != 0 ||
		durationNonZero(p.ReloadDuration) || p.ReloadCost != 0
}

func durationNonZero(d *solver.Duration) bool {
	return d != nil && d.Duration != 0
}

// loadLimits converts the parking's per-round caps to vehicle load
// limits.
func (p *ParkingLocation) loadLimits() map[string]solver.LoadLimit {
	if len(p.DeliveryLoadLimits) == 0 {
		return nil
	}
	limits := make(map[string]solver.LoadLimit, len(p.DeliveryLoadLimits))
	for unit, max := range p.DeliveryLoadLimits {
		limits[unit] = solver.LoadLimit{MaxLoad: max}
	}
	return limits
}

func (p *ParkingLocation) validate() error {
	if p.Tag == "" {
		return errors.New("parking location has an empty tag")
	}
	if p.Waypoint == nil {
		return fmt.Errorf("parking location %q has no waypoint", p.Tag)
	}
	return nil
}
