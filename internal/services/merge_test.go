package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twostep-routing-service/internal/solver"
)

func TestMergeLocalAndGlobal(t *testing.T) {
	planner := newTestPlanner(t, 2, nil)

	merged, err := planner.MergeLocalAndGlobal(testLocalResponse(), testGlobalResponse())
	require.NoError(t, err)

	assert.Equal(t, "scenario/merged", merged.Request.Label)

	// The merged request extends the base model with one arrival and one
	// departure marker.
	require.Len(t, merged.Request.Model.Shipments, 5)
	assert.Equal(t, "P1 arrival", merged.Request.Model.Shipments[3].Label)
	assert.Equal(t, "P1 departure", merged.Request.Model.Shipments[4].Label)

	require.Len(t, merged.Response.Routes, 2)
	route := merged.Response.Routes[0]

	require.Len(t, route.Visits, 5)
	require.Len(t, route.Transitions, 6)

	labels := make([]string, len(route.Visits))
	for i, visit := range route.Visits {
		labels[i] = visit.ShipmentLabel
	}
	assert.Equal(t, []string{"direct", "P1 arrival", "bread", "milk", "P1 departure"}, labels)

	// Direct visits are restored to base indices.
	assert.Equal(t, 2, route.Visits[0].ShipmentIndex)
	assert.Equal(t, 0, route.Visits[2].ShipmentIndex)
	assert.Equal(t, 1, route.Visits[3].ShipmentIndex)

	// The round reached the parking at 09:00 but was solved locally at
	// 08:05, so every local timestamp shifts by 55 minutes.
	require.NotNil(t, route.Visits[2].StartTime)
	assert.Equal(t, at(62*time.Minute), *route.Visits[2].StartTime)
	require.NotNil(t, route.Visits[3].StartTime)
	assert.Equal(t, at(70*time.Minute), *route.Visits[3].StartTime)
	require.NotNil(t, route.Visits[4].StartTime)
	assert.Equal(t, at(80*time.Minute), *route.Visits[4].StartTime, "departure at shifted round end")

	// The departure detour records the whole round duration.
	require.NotNil(t, route.Visits[4].Detour)
	assert.Equal(t, "1200s", route.Visits[4].Detour.String())

	assert.Equal(t, float64(5000+1234), route.RouteTotalCost, "local round cost folds into the route")

	require.NotNil(t, route.Metrics)
	assert.Equal(t, 5, route.Metrics.PerformedShipmentCount)
	assert.Equal(t, "3600s", route.Metrics.TotalDuration.String())

	// Idle vehicles keep an empty route.
	assert.Empty(t, merged.Response.Routes[1].Visits)
	assert.Empty(t, merged.Response.SkippedShipments)
}

func TestMergeCoversEveryBaseShipmentOnce(t *testing.T) {
	planner := newTestPlanner(t, 2, nil)

	merged, err := planner.MergeLocalAndGlobal(testLocalResponse(), testGlobalResponse())
	require.NoError(t, err)

	seen := make(map[int]int)
	numBase := len(planner.request.Model.Shipments)
	for _, route := range merged.Response.Routes {
		for _, visit := range route.Visits {
			if visit.ShipmentIndex < numBase {
				seen[visit.ShipmentIndex]++
			}
		}
	}
	for _, skip := range merged.Response.SkippedShipments {
		seen[skip.Index]++
	}

	for index := 0; index < numBase; index++ {
		assert.Equal(t, 1, seen[index], "base shipment %d", index)
	}
}

func TestMergeRemapsSkippedShipments(t *testing.T) {
	planner := newTestPlanner(t, 2, nil)

	local := testLocalResponse()
	global := testGlobalResponse()

	// The solver dropped the whole parking round and the direct shipment.
	global.Routes[0].Visits = nil
	global.Routes[0].Transitions = nil
	global.SkippedShipments = []solver.SkippedShipment{
		{Index: 0, Label: "s:2 direct"},
		{Index: 1, Label: "p:0 bread,milk"},
	}

	merged, err := planner.MergeLocalAndGlobal(local, global)
	require.NoError(t, err)

	require.Len(t, merged.Response.SkippedShipments, 3)
	assert.Equal(t, 2, merged.Response.SkippedShipments[0].Index)
	assert.Equal(t, "direct", merged.Response.SkippedShipments[0].Label)
	assert.Equal(t, 0, merged.Response.SkippedShipments[1].Index)
	assert.Equal(t, "bread", merged.Response.SkippedShipments[1].Label)
	assert.Equal(t, 1, merged.Response.SkippedShipments[2].Index)
	assert.Equal(t, "milk", merged.Response.SkippedShipments[2].Label)
}

func TestMergeAnnotatesTransitions(t *testing.T) {
	request := testRequest()
	request.Model.Vehicles[0].TravelMode = solver.TravelModeDriving

	options := DefaultOptions()
	options.MinAverageShipmentsPerRound = 2
	options.TravelModeInMergedTransitions = true

	planner, err := NewPlanner(request, []ParkingLocation{testParking()}, testParkingFor(), options)
	require.NoError(t, err)

	merged, err := planner.MergeLocalAndGlobal(testLocalResponse(), testGlobalResponse())
	require.NoError(t, err)

	route := merged.Response.Routes[0]
	// Vehicle legs drive, courier legs walk.
	assert.Equal(t, solver.TravelModeDriving, route.Transitions[0].TravelMode)
	assert.Equal(t, solver.TravelModeWalking, route.Transitions[3].TravelMode)
}

func TestMergeRejectsMalformedRoutes(t *testing.T) {
	planner := newTestPlanner(t, 2, nil)

	global := testGlobalResponse()
	global.Routes[0].Transitions = global.Routes[0].Transitions[:2]

	_, err := planner.MergeLocalAndGlobal(testLocalResponse(), global)
	require.Error(t, err)

	local := testLocalResponse()
	local.Routes[0].Breaks = []solver.Break{{}}

	_, err = planner.MergeLocalAndGlobal(local, testGlobalResponse())
	require.Error(t, err)
}
