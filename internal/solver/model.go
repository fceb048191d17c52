// Package solver defines the JSON request/response schema of the
// external route-optimization service. The service accepts a
// "shipments + vehicles" model and returns visit sequences with timing;
// this package only mirrors that schema, it performs no optimization.
package solver

import "time"

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Location struct {
	LatLng *LatLng `json:"latLng,omitempty"`
}

// Waypoint locates a visit or a vehicle start/end.
type Waypoint struct {
	Location   *Location `json:"location,omitempty"`
	PlaceID    string    `json:"placeId,omitempty"`
	SideOfRoad bool      `json:"sideOfRoad,omitempty"`
}

// TimeWindow constrains when a visit or a vehicle start/end may happen.
// Hard bounds are [StartTime, EndTime]; soft bounds add a linear cost
// per hour outside [SoftStartTime, SoftEndTime].
type TimeWindow struct {
	StartTime                      *time.Time `json:"startTime,omitempty"`
	EndTime                        *time.Time `json:"endTime,omitempty"`
	SoftStartTime                  *time.Time `json:"softStartTime,omitempty"`
	SoftEndTime                    *time.Time `json:"softEndTime,omitempty"`
	CostPerHourBeforeSoftStartTime float64    `json:"costPerHourBeforeSoftStartTime,omitempty"`
	CostPerHourAfterSoftEndTime    float64    `json:"costPerHourAfterSoftEndTime,omitempty"`
}

// Load is a demand amount for one load unit (e.g. "weight_kg").
type Load struct {
	Amount int64 `json:"amount,string,omitempty"`
}

// LoadLimit caps a vehicle's total load for one unit.
type LoadLimit struct {
	MaxLoad int64 `json:"maxLoad,string,omitempty"`
}

// VisitRequest describes one pickup or delivery stop.
type VisitRequest struct {
	ArrivalWaypoint   *Waypoint    `json:"arrivalWaypoint,omitempty"`
	DepartureWaypoint *Waypoint    `json:"departureWaypoint,omitempty"`
	Duration          *Duration    `json:"duration,omitempty"`
	TimeWindows       []TimeWindow `json:"timeWindows,omitempty"`
	Tags              []string     `json:"tags,omitempty"`
}

// Shipment is one unit of work for the solver: a set of alternative
// pickups and deliveries plus constraints on which vehicles may serve it
// and at what cost. A nil PenaltyCost makes the shipment mandatory.
type Shipment struct {
	Label                  string          `json:"label,omitempty"`
	Pickups                []VisitRequest  `json:"pickups,omitempty"`
	Deliveries             []VisitRequest  `json:"deliveries,omitempty"`
	LoadDemands            map[string]Load `json:"loadDemands,omitempty"`
	AllowedVehicleIndices  []int           `json:"allowedVehicleIndices,omitempty"`
	CostsPerVehicle        []float64       `json:"costsPerVehicle,omitempty"`
	CostsPerVehicleIndices []int           `json:"costsPerVehicleIndices,omitempty"`
	PenaltyCost            *float64        `json:"penaltyCost,omitempty"`
}

type TravelMode string

const (
	TravelModeUnspecified TravelMode = ""
	TravelModeDriving     TravelMode = "DRIVING"
	TravelModeWalking     TravelMode = "WALKING"
)

type DurationLimit struct {
	MaxDuration *Duration `json:"maxDuration,omitempty"`
}

// Vehicle describes one vehicle available to the solver.
type Vehicle struct {
	Label                  string               `json:"label,omitempty"`
	TravelMode             TravelMode           `json:"travelMode,omitempty"`
	TravelDurationMultiple *float64             `json:"travelDurationMultiple,omitempty"`
	StartWaypoint          *Waypoint            `json:"startWaypoint,omitempty"`
	EndWaypoint            *Waypoint            `json:"endWaypoint,omitempty"`
	StartTags              []string             `json:"startTags,omitempty"`
	EndTags                []string             `json:"endTags,omitempty"`
	StartTimeWindows       []TimeWindow         `json:"startTimeWindows,omitempty"`
	EndTimeWindows         []TimeWindow         `json:"endTimeWindows,omitempty"`
	FixedCost              float64              `json:"fixedCost,omitempty"`
	CostPerHour            float64              `json:"costPerHour,omitempty"`
	CostPerKilometer       float64              `json:"costPerKilometer,omitempty"`
	LoadLimits             map[string]LoadLimit `json:"loadLimits,omitempty"`
	RouteDurationLimit     *DurationLimit       `json:"routeDurationLimit,omitempty"`
	BreakRule              *BreakRule           `json:"breakRule,omitempty"`
}

// BreakRule forces rest periods into a vehicle's route.
type BreakRule struct {
	BreakRequests []BreakRequest `json:"breakRequests,omitempty"`
}

type BreakRequest struct {
	EarliestStartTime *time.Time `json:"earliestStartTime,omitempty"`
	LatestStartTime   *time.Time `json:"latestStartTime,omitempty"`
	MinDuration       *Duration  `json:"minDuration,omitempty"`
}

// TransitionAttributes attach a cost and/or delay to transitions whose
// source and destination visits match the tag filters.
type TransitionAttributes struct {
	SrcTag         string    `json:"srcTag,omitempty"`
	ExcludedSrcTag string    `json:"excludedSrcTag,omitempty"`
	DstTag         string    `json:"dstTag,omitempty"`
	ExcludedDstTag string    `json:"excludedDstTag,omitempty"`
	Cost           float64   `json:"cost,omitempty"`
	Delay          *Duration `json:"delay,omitempty"`
}

// Model is the optimization problem: shipments to serve and vehicles to
// serve them with, bounded by a global planning horizon.
type Model struct {
	GlobalStartTime      *time.Time             `json:"globalStartTime,omitempty"`
	GlobalEndTime        *time.Time             `json:"globalEndTime,omitempty"`
	Shipments            []Shipment             `json:"shipments,omitempty"`
	Vehicles             []Vehicle              `json:"vehicles,omitempty"`
	TransitionAttributes []TransitionAttributes `json:"transitionAttributes,omitempty"`
}

type SearchMode string

const (
	SearchModeUnspecified    SearchMode = ""
	SearchModeReturnFast     SearchMode = "RETURN_FAST"
	SearchModeConsumeAllTime SearchMode = "CONSUME_ALL_AVAILABLE_TIME"
)

// Request is a complete solve call.
type Request struct {
	Label                       string          `json:"label,omitempty"`
	Model                       Model           `json:"model"`
	SearchMode                  SearchMode      `json:"searchMode,omitempty"`
	Timeout                     *Duration       `json:"timeout,omitempty"`
	InjectedFirstSolutionRoutes []ShipmentRoute `json:"injectedFirstSolutionRoutes,omitempty"`
	ConsiderRoadTraffic         bool            `json:"considerRoadTraffic,omitempty"`
	PopulatePolylines           bool            `json:"populatePolylines,omitempty"`
	PopulateTransitionPolylines bool            `json:"populateTransitionPolylines,omitempty"`
}

// Default planning horizon applied when a model leaves its global bounds
// unset: the Unix epoch and one hundred 365-day years after it.
var (
	DefaultGlobalStartTime = time.Unix(0, 0).UTC()
	DefaultGlobalEndTime   = time.Unix(0, 0).UTC().AddDate(100, 0, 0)
)

// GlobalStart returns the model's start bound, defaulted when unset.
func (m *Model) GlobalStart() time.Time {
	if m.GlobalStartTime != nil {
		return *m.GlobalStartTime
	}
	return DefaultGlobalStartTime
}

// GlobalEnd returns the model's end bound, defaulted when unset.
func (m *Model) GlobalEnd() time.Time {
	if m.GlobalEndTime != nil {
		return *m.GlobalEndTime
	}
	return DefaultGlobalEndTime
}
