package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twostep-routing-service/internal/solver"
)

func TestMakeGlobalRequest(t *testing.T) {
	planner := newTestPlanner(t, 2, nil)

	req, err := planner.MakeGlobalRequest(testLocalResponse())
	require.NoError(t, err)

	assert.Equal(t, "scenario/global", req.Label)
	require.Len(t, req.Model.Shipments, 2)
	require.Len(t, req.Model.Vehicles, 2, "global vehicles are the base vehicles")

	direct := req.Model.Shipments[0]
	assert.Equal(t, "s:2 direct", direct.Label)
	assert.Equal(t, wp(48.010, 2.010), direct.Deliveries[0].ArrivalWaypoint)

	virtual := req.Model.Shipments[1]
	assert.Equal(t, "p:0 bread,milk", virtual.Label)
	require.Len(t, virtual.Deliveries, 1)

	delivery := virtual.Deliveries[0]
	assert.Equal(t, planner.parkings["P1"].Waypoint, delivery.ArrivalWaypoint)
	require.NotNil(t, delivery.Duration)
	assert.Equal(t, "1200s", delivery.Duration.String(), "round duration is the local route duration")
	assert.Empty(t, delivery.TimeWindows, "unconstrained members add no window")
	assert.Equal(t, []string{"P1"}, delivery.Tags)

	assert.Equal(t, int64(3), virtual.LoadDemands["boxes"].Amount, "demands sum across members")
	assert.Nil(t, virtual.PenaltyCost, "one mandatory member makes the round mandatory")
	assert.Nil(t, virtual.AllowedVehicleIndices)
}

func TestMakeGlobalRequestSkipsEmptyRoutes(t *testing.T) {
	planner := newTestPlanner(t, 2, nil)

	local := testLocalResponse()
	local.Routes = append(local.Routes, solver.ShipmentRoute{VehicleIndex: 1, VehicleLabel: "P1/1"})

	req, err := planner.MakeGlobalRequest(local)
	require.NoError(t, err)
	require.Len(t, req.Model.Shipments, 2, "empty local routes produce no virtual shipment")
}

func TestVirtualShipmentPenaltySum(t *testing.T) {
	planner := newTestPlanner(t, 2, func(req *solver.Request, _ *ParkingLocation) {
		req.Model.Shipments[1].PenaltyCost = floatPtr(250)
	})

	req, err := planner.MakeGlobalRequest(testLocalResponse())
	require.NoError(t, err)

	virtual := req.Model.Shipments[1]
	require.NotNil(t, virtual.PenaltyCost)
	assert.Equal(t, float64(350), *virtual.PenaltyCost)
}

func TestVirtualShipmentAllowedVehicleIntersection(t *testing.T) {
	planner := newTestPlanner(t, 2, func(req *solver.Request, _ *ParkingLocation) {
		req.Model.Shipments[0].AllowedVehicleIndices = []int{1, 0}
		req.Model.Shipments[1].AllowedVehicleIndices = []int{1, 0}
	})

	req, err := planner.MakeGlobalRequest(testLocalResponse())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, req.Model.Shipments[1].AllowedVehicleIndices)
}

func TestVirtualShipmentAllowedVehicleConflict(t *testing.T) {
	planner := newTestPlanner(t, 2, func(req *solver.Request, _ *ParkingLocation) {
		req.Model.Shipments[0].AllowedVehicleIndices = []int{0}
		req.Model.Shipments[1].AllowedVehicleIndices = []int{1}
	})

	_, err := planner.MakeGlobalRequest(testLocalResponse())
	require.True(t, errors.Is(err, ErrInconsistentData), "err = %v", err)
}

func TestVirtualShipmentTimeWindowPropagation(t *testing.T) {
	windowStart := at(time.Hour)
	windowEnd := at(2 * time.Hour)

	planner := newTestPlanner(t, 2, func(req *solver.Request, _ *ParkingLocation) {
		req.Model.Shipments[0].Deliveries[0].TimeWindows = []solver.TimeWindow{
			{StartTime: &windowStart, EndTime: &windowEnd},
		}
	})

	req, err := planner.MakeGlobalRequest(testLocalResponse())
	require.NoError(t, err)

	windows := req.Model.Shipments[1].Deliveries[0].TimeWindows
	require.Len(t, windows, 1)

	// The bread visit starts 2 minutes into the round, so the round must
	// start within [window - 2m].
	require.NotNil(t, windows[0].StartTime)
	require.NotNil(t, windows[0].EndTime)
	assert.Equal(t, at(58*time.Minute), *windows[0].StartTime)
	assert.Equal(t, at(118*time.Minute), *windows[0].EndTime)
}

func TestVirtualShipmentTimeWindowIntersection(t *testing.T) {
	breadStart := at(time.Hour)
	milkStart := at(time.Hour + 30*time.Minute)

	planner := newTestPlanner(t, 2, func(req *solver.Request, _ *ParkingLocation) {
		req.Model.Shipments[0].Deliveries[0].TimeWindows = []solver.TimeWindow{{StartTime: &breadStart}}
		req.Model.Shipments[1].Deliveries[0].TimeWindows = []solver.TimeWindow{{StartTime: &milkStart}}
	})

	req, err := planner.MakeGlobalRequest(testLocalResponse())
	require.NoError(t, err)

	windows := req.Model.Shipments[1].Deliveries[0].TimeWindows
	require.Len(t, windows, 1)

	// bread shifts to 00:58, milk (visited at +10m) to 01:20; the
	// intersection keeps the tighter bound. No end bound survives since
	// both windows are open-ended.
	require.NotNil(t, windows[0].StartTime)
	assert.Equal(t, at(80*time.Minute), *windows[0].StartTime)
	assert.Nil(t, windows[0].EndTime)
}

func TestVirtualShipmentTimeWindowConflict(t *testing.T) {
	breadEnd := at(30 * time.Minute)
	milkStart := at(3 * time.Hour)

	planner := newTestPlanner(t, 2, func(req *solver.Request, _ *ParkingLocation) {
		req.Model.Shipments[0].Deliveries[0].TimeWindows = []solver.TimeWindow{{EndTime: &breadEnd}}
		req.Model.Shipments[1].Deliveries[0].TimeWindows = []solver.TimeWindow{{StartTime: &milkStart}}
	})

	_, err := planner.MakeGlobalRequest(testLocalResponse())
	require.True(t, errors.Is(err, ErrInconsistentData), "err = %v", err)
}

func TestGlobalRequestParkingTransitionAttributes(t *testing.T) {
	planner := newTestPlanner(t, 2, func(_ *solver.Request, parking *ParkingLocation) {
		parking.ArrivalDuration = durationOf(2 * time.Minute)
		parking.DepartureDuration = durationOf(time.Minute)
		parking.ReloadCost = 40
	})

	req, err := planner.MakeGlobalRequest(testLocalResponse())
	require.NoError(t, err)

	tag := planner.tags.transitionTag("P1")
	assert.Equal(t, "parking: P1", tag)
	assert.Contains(t, req.Model.Shipments[1].Deliveries[0].Tags, tag)

	require.Len(t, req.Model.TransitionAttributes, 3)

	arrival := req.Model.TransitionAttributes[0]
	assert.Equal(t, tag, arrival.ExcludedSrcTag)
	assert.Equal(t, tag, arrival.DstTag)
	assert.Equal(t, "120s", arrival.Delay.String())

	departure := req.Model.TransitionAttributes[1]
	assert.Equal(t, tag, departure.SrcTag)
	assert.Equal(t, tag, departure.ExcludedDstTag)

	reload := req.Model.TransitionAttributes[2]
	assert.Equal(t, tag, reload.SrcTag)
	assert.Equal(t, tag, reload.DstTag)
	assert.Equal(t, float64(40), reload.Cost)
}
