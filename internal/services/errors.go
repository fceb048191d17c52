package services

import "errors"

// Error classes of the two-step core. Configuration errors surface from
// NewPlanner and are never partially applied; data inconsistency errors
// fail the builder call that detected them and must not be retried
// without fixing the input.
var (
	// ErrInvalidConfig marks planner construction failures: duplicate or
	// unknown parking tags, invalid shipment indices, bad options.
	ErrInvalidConfig = errors.New("invalid planner configuration")

	// ErrInconsistentData marks builder failures caused by the input
	// models or solutions: empty time-window or allowed-vehicle
	// intersections, malformed labels, unsupported shipment shapes,
	// breaks inside local routes.
	ErrInconsistentData = errors.New("inconsistent model data")
)
