package solver

import "time"

// EncodedPolyline carries a route geometry in the shared varint delta
// encoding (see internal/polyline).
type EncodedPolyline struct {
	Points string `json:"points,omitempty"`
}

// Visit is one performed pickup or delivery on a route.
type Visit struct {
	ShipmentIndex     int        `json:"shipmentIndex,omitempty"`
	IsPickup          bool       `json:"isPickup,omitempty"`
	VisitRequestIndex int        `json:"visitRequestIndex,omitempty"`
	StartTime         *time.Time `json:"startTime,omitempty"`
	Detour            *Duration  `json:"detour,omitempty"`
	ShipmentLabel     string     `json:"shipmentLabel,omitempty"`
}

// Transition is the travel leg before a visit (or after the last one).
// A route with n visits carries n+1 transitions.
type Transition struct {
	TravelDuration       *Duration        `json:"travelDuration,omitempty"`
	TravelDistanceMeters float64          `json:"travelDistanceMeters,omitempty"`
	DelayDuration        *Duration        `json:"delayDuration,omitempty"`
	BreakDuration        *Duration        `json:"breakDuration,omitempty"`
	WaitDuration         *Duration        `json:"waitDuration,omitempty"`
	TotalDuration        *Duration        `json:"totalDuration,omitempty"`
	StartTime            *time.Time       `json:"startTime,omitempty"`
	RoutePolyline        *EncodedPolyline `json:"routePolyline,omitempty"`

	// Annotation fields, populated only when merged plans are asked to
	// carry the travel mode of each stitched leg.
	TravelMode             TravelMode `json:"travelMode,omitempty"`
	TravelDurationMultiple *float64   `json:"travelDurationMultiple,omitempty"`
}

// Break is a rest period performed on a route.
type Break struct {
	StartTime *time.Time `json:"startTime,omitempty"`
	Duration  *Duration  `json:"duration,omitempty"`
}

// AggregatedMetrics summarizes a route (or a whole response).
type AggregatedMetrics struct {
	PerformedShipmentCount int       `json:"performedShipmentCount,omitempty"`
	TravelDuration         *Duration `json:"travelDuration,omitempty"`
	WaitDuration           *Duration `json:"waitDuration,omitempty"`
	DelayDuration          *Duration `json:"delayDuration,omitempty"`
	BreakDuration          *Duration `json:"breakDuration,omitempty"`
	VisitDuration          *Duration `json:"visitDuration,omitempty"`
	TotalDuration          *Duration `json:"totalDuration,omitempty"`
	TravelDistanceMeters   float64   `json:"travelDistanceMeters,omitempty"`
}

// ShipmentRoute is the solved route of one vehicle.
type ShipmentRoute struct {
	VehicleIndex     int                `json:"vehicleIndex,omitempty"`
	VehicleLabel     string             `json:"vehicleLabel,omitempty"`
	VehicleStartTime *time.Time         `json:"vehicleStartTime,omitempty"`
	VehicleEndTime   *time.Time         `json:"vehicleEndTime,omitempty"`
	Visits           []Visit            `json:"visits,omitempty"`
	Transitions      []Transition       `json:"transitions,omitempty"`
	Breaks           []Break            `json:"breaks,omitempty"`
	Metrics          *AggregatedMetrics `json:"metrics,omitempty"`
	RouteTotalCost   float64            `json:"routeTotalCost,omitempty"`
	RoutePolyline    *EncodedPolyline   `json:"routePolyline,omitempty"`
}

// Duration returns the route's total span (vehicle end minus start), or
// zero when either endpoint is missing.
func (r *ShipmentRoute) Duration() Duration {
	if r.VehicleStartTime == nil || r.VehicleEndTime == nil {
		return Duration{}
	}
	return FromDuration(r.VehicleEndTime.Sub(*r.VehicleStartTime))
}

// SkippedShipment identifies a shipment the solver chose not to serve.
type SkippedShipment struct {
	Index int    `json:"index,omitempty"`
	Label string `json:"label,omitempty"`
}

// Response is the solver's answer to a Request.
type Response struct {
	Routes           []ShipmentRoute    `json:"routes,omitempty"`
	SkippedShipments []SkippedShipment  `json:"skippedShipments,omitempty"`
	Metrics          *AggregatedMetrics `json:"metrics,omitempty"`
	TotalCost        float64            `json:"totalCost,omitempty"`
	RequestLabel     string             `json:"requestLabel,omitempty"`
}
