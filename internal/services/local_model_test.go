package services

import (
	"errors"
	"testing"
	"time"

	"twostep-routing-service/internal/solver"
)

func TestMakeLocalRequest(t *testing.T) {
	planner := newTestPlanner(t, 2, nil)

	req, err := planner.MakeLocalRequest()
	if err != nil {
		t.Fatalf("MakeLocalRequest: %v", err)
	}

	if req.Label != "scenario/local" {
		t.Fatalf("label = %q", req.Label)
	}
	if !req.Model.GlobalStartTime.Equal(at(0)) {
		t.Fatalf("global start = %v", req.Model.GlobalStartTime)
	}

	if len(req.Model.Vehicles) != 1 {
		t.Fatalf("got %d vehicles, want 1", len(req.Model.Vehicles))
	}
	vehicle := req.Model.Vehicles[0]
	if vehicle.Label != "P1/0" {
		t.Fatalf("vehicle label = %q", vehicle.Label)
	}
	if vehicle.TravelMode != solver.TravelModeWalking {
		t.Fatalf("travel mode = %q", vehicle.TravelMode)
	}
	if vehicle.StartWaypoint != planner.parkings["P1"].Waypoint ||
		vehicle.EndWaypoint != planner.parkings["P1"].Waypoint {
		t.Fatal("round vehicle not pinned to the parking waypoint")
	}
	if len(vehicle.StartTags) != 1 || vehicle.StartTags[0] != "P1" {
		t.Fatalf("start tags = %v", vehicle.StartTags)
	}
	if vehicle.FixedCost != 10_000 {
		t.Fatalf("fixed cost = %v", vehicle.FixedCost)
	}
	if limit, ok := vehicle.LoadLimits["boxes"]; !ok || limit.MaxLoad != 5 {
		t.Fatalf("load limits = %v", vehicle.LoadLimits)
	}

	if len(req.Model.Shipments) != 2 {
		t.Fatalf("got %d shipments, want 2", len(req.Model.Shipments))
	}
	for i, wantLabel := range []string{"0: bread", "1: milk"} {
		shipment := req.Model.Shipments[i]
		if shipment.Label != wantLabel {
			t.Errorf("shipment %d label = %q, want %q", i, shipment.Label, wantLabel)
		}
		if len(shipment.AllowedVehicleIndices) != 1 || shipment.AllowedVehicleIndices[0] != 0 {
			t.Errorf("shipment %d allowed vehicles = %v", i, shipment.AllowedVehicleIndices)
		}
		if len(shipment.Deliveries) != 1 {
			t.Errorf("shipment %d deliveries = %d", i, len(shipment.Deliveries))
		}
	}
	// The direct shipment stays out of the local model.
	for _, shipment := range req.Model.Shipments {
		if shipment.Label == "2: direct" {
			t.Fatal("direct shipment leaked into the local model")
		}
	}
}

func TestMakeLocalRequestRoundsPerGroup(t *testing.T) {
	planner := newTestPlanner(t, 1, nil)

	req, err := planner.MakeLocalRequest()
	if err != nil {
		t.Fatalf("MakeLocalRequest: %v", err)
	}

	if len(req.Model.Vehicles) != 2 {
		t.Fatalf("got %d vehicles, want 2", len(req.Model.Vehicles))
	}
	if req.Model.Vehicles[0].Label != "P1/0" || req.Model.Vehicles[1].Label != "P1/1" {
		t.Fatalf("vehicle labels = %q, %q", req.Model.Vehicles[0].Label, req.Model.Vehicles[1].Label)
	}

	for i := range req.Model.Shipments {
		allowed := req.Model.Shipments[i].AllowedVehicleIndices
		if len(allowed) != 2 {
			t.Fatalf("shipment %d allowed vehicles = %v", i, allowed)
		}
	}
}

func TestMakeLocalRequestRejectsPickups(t *testing.T) {
	planner := newTestPlanner(t, 2, func(req *solver.Request, _ *ParkingLocation) {
		req.Model.Shipments[0].Pickups = []solver.VisitRequest{{ArrivalWaypoint: wp(48, 2)}}
	})

	_, err := planner.MakeLocalRequest()
	if !errors.Is(err, ErrInconsistentData) {
		t.Fatalf("err = %v, want ErrInconsistentData", err)
	}
}

func TestMakeLocalRequestRoundDurationLimit(t *testing.T) {
	planner := newTestPlanner(t, 2, func(_ *solver.Request, parking *ParkingLocation) {
		parking.MaxRoundDuration = durationOf(45 * time.Minute)
	})

	req, err := planner.MakeLocalRequest()
	if err != nil {
		t.Fatalf("MakeLocalRequest: %v", err)
	}

	limit := req.Model.Vehicles[0].RouteDurationLimit
	if limit == nil || limit.MaxDuration == nil || limit.MaxDuration.String() != "2700s" {
		t.Fatalf("route duration limit = %+v", limit)
	}
}
