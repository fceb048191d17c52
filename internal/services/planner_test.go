package services

import (
	"testing"
	"time"

	"twostep-routing-service/internal/solver"
)

// Shared fixtures: a small scenario with two parking-mapped shipments,
// one direct shipment and two vehicles, plus hand-built sub-solutions
// consistent with the models the builders generate for it.

var testBase = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time {
	return testBase.Add(offset)
}

func timeAt(offset time.Duration) *time.Time {
	t := at(offset)
	return &t
}

func wp(lat, lng float64) *solver.Waypoint {
	return &solver.Waypoint{
		Location: &solver.Location{LatLng: &solver.LatLng{Latitude: lat, Longitude: lng}},
	}
}

func durationOf(d time.Duration) *solver.Duration {
	wrapped := solver.FromDuration(d)
	return &wrapped
}

func floatPtr(f float64) *float64 { return &f }

func testRequest() *solver.Request {
	globalStart := at(0)
	globalEnd := at(12 * time.Hour)

	return &solver.Request{
		Label: "scenario",
		Model: solver.Model{
			GlobalStartTime: &globalStart,
			GlobalEndTime:   &globalEnd,
			Shipments: []solver.Shipment{
				{
					Label: "bread",
					Deliveries: []solver.VisitRequest{{
						ArrivalWaypoint: wp(48.001, 2.001),
						Duration:        durationOf(2 * time.Minute),
					}},
					LoadDemands: map[string]solver.Load{"boxes": {Amount: 1}},
					PenaltyCost: floatPtr(100),
				},
				{
					Label: "milk",
					Deliveries: []solver.VisitRequest{{
						ArrivalWaypoint: wp(48.002, 2.002),
						Duration:        durationOf(3 * time.Minute),
					}},
					LoadDemands: map[string]solver.Load{"boxes": {Amount: 2}},
				},
				{
					Label: "direct",
					Deliveries: []solver.VisitRequest{{
						ArrivalWaypoint: wp(48.010, 2.010),
						Duration:        durationOf(time.Minute),
					}},
				},
			},
			Vehicles: []solver.Vehicle{
				{Label: "van-0", StartWaypoint: wp(48.0, 2.0), EndWaypoint: wp(48.0, 2.0)},
				{Label: "van-1", StartWaypoint: wp(48.0, 2.0), EndWaypoint: wp(48.0, 2.0)},
			},
		},
	}
}

func testParking() ParkingLocation {
	return ParkingLocation{
		Tag:                "P1",
		Waypoint:           wp(48.0005, 2.0005),
		TravelMode:         solver.TravelModeWalking,
		DeliveryLoadLimits: map[string]int64{"boxes": 5},
	}
}

func testParkingFor() map[int]string {
	return map[int]string{0: "P1", 1: "P1"}
}

// newTestPlanner builds a planner over the shared scenario. With
// minPerRound=2 the parking group gets one round vehicle, with 1 it gets
// two.
func newTestPlanner(t *testing.T, minPerRound int, mutate func(*solver.Request, *ParkingLocation)) *Planner {
	t.Helper()

	request := testRequest()
	parking := testParking()
	if mutate != nil {
		mutate(request, &parking)
	}

	options := DefaultOptions()
	options.MinAverageShipmentsPerRound = minPerRound

	planner, err := NewPlanner(request, []ParkingLocation{parking}, testParkingFor(), options)
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	return planner
}

func transitionAt(offset, travel time.Duration, meters float64) solver.Transition {
	return solver.Transition{
		TravelDuration:       durationOf(travel),
		TotalDuration:        durationOf(travel),
		TravelDistanceMeters: meters,
		StartTime:            timeAt(offset),
	}
}

// testLocalResponse is a plausible solution of the minPerRound=2 local
// model: one 20 minute round "P1/0" serving bread then milk.
func testLocalResponse() *solver.Response {
	return &solver.Response{
		Routes: []solver.ShipmentRoute{{
			VehicleIndex:     0,
			VehicleLabel:     "P1/0",
			VehicleStartTime: timeAt(5 * time.Minute),
			VehicleEndTime:   timeAt(25 * time.Minute),
			Visits: []solver.Visit{
				{ShipmentIndex: 0, ShipmentLabel: "0: bread", StartTime: timeAt(7 * time.Minute)},
				{ShipmentIndex: 1, ShipmentLabel: "1: milk", StartTime: timeAt(15 * time.Minute)},
			},
			Transitions: []solver.Transition{
				transitionAt(5*time.Minute, 2*time.Minute, 150),
				transitionAt(9*time.Minute, 6*time.Minute, 420),
				transitionAt(18*time.Minute, 7*time.Minute, 500),
			},
			RouteTotalCost: 1234,
		}},
	}
}

// testGlobalResponse is a plausible solution of the global model built
// from testLocalResponse: van-0 serves the direct shipment and then the
// parking round, van-1 stays idle.
func testGlobalResponse() *solver.Response {
	return &solver.Response{
		Routes: []solver.ShipmentRoute{
			{
				VehicleIndex:     0,
				VehicleLabel:     "van-0",
				VehicleStartTime: timeAt(30 * time.Minute),
				VehicleEndTime:   timeAt(90 * time.Minute),
				Visits: []solver.Visit{
					{ShipmentIndex: 0, ShipmentLabel: "s:2 direct", StartTime: timeAt(40 * time.Minute)},
					{ShipmentIndex: 1, ShipmentLabel: "p:0 bread,milk", StartTime: timeAt(60 * time.Minute)},
				},
				Transitions: []solver.Transition{
					transitionAt(30*time.Minute, 10*time.Minute, 3000),
					transitionAt(41*time.Minute, 19*time.Minute, 5200),
					transitionAt(80*time.Minute, 10*time.Minute, 3000),
				},
				RouteTotalCost: 5000,
			},
			{
				VehicleIndex: 1,
				VehicleLabel: "van-1",
			},
		},
	}
}
