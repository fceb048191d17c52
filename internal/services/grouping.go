package services

import (
	"fmt"
	"sort"

	"twostep-routing-service/internal/solver"
)

// parkingGroupKey clusters mapped shipments that may share a courier
// round: same parking tag, same first-delivery time window (only under
// GroupByParkingAndTime) and same allowed-vehicle set. All components
// are rendered to strings so the key is comparable and its derivation
// deterministic.
type parkingGroupKey struct {
	parkingTag      string
	startTime       string
	endTime         string
	allowedVehicles string
}

func (k parkingGroupKey) less(other parkingGroupKey) bool {
	if k.parkingTag != other.parkingTag {
		return k.parkingTag < other.parkingTag
	}
	if k.startTime != other.startTime {
		return k.startTime < other.startTime
	}
	if k.endTime != other.endTime {
		return k.endTime < other.endTime
	}
	return k.allowedVehicles < other.allowedVehicles
}

// parkingGroup is one cluster of base shipments served from the same
// parking location, plus the label prefix shared by its round vehicles.
type parkingGroup struct {
	key             parkingGroupKey
	label           string
	shipmentIndices []int
}

// deriveGroupKey computes the clustering key for one mapped shipment.
func deriveGroupKey(shipment *solver.Shipment, parkingTag string, grouping LocalModelGrouping) parkingGroupKey {
	key := parkingGroupKey{
		parkingTag:      parkingTag,
		allowedVehicles: formatKeyVehicles(shipment.AllowedVehicleIndices),
	}

	if grouping == GroupByParkingAndTime && len(shipment.Deliveries) > 0 {
		if windows := shipment.Deliveries[0].TimeWindows; len(windows) > 0 {
			key.startTime = formatKeyTime(windows[0].StartTime)
			key.endTime = formatKeyTime(windows[0].EndTime)
		}
	}

	return key
}

// buildParkingGroups clusters the mapped shipments and returns the
// groups in deterministic (sorted-key) order together with the sorted
// direct-shipment indices. Fails on invalid shipment indices or unknown
// parking tags.
func buildParkingGroups(
	model *solver.Model,
	parkingFor map[int]string,
	parkings map[string]*ParkingLocation,
	grouping LocalModelGrouping,
) ([]parkingGroup, []int, error) {
	mapped := make([]int, 0, len(parkingFor))
	for index := range parkingFor {
		mapped = append(mapped, index)
	}
	sort.Ints(mapped)

	byKey := make(map[parkingGroupKey]*parkingGroup)
	inParking := make(map[int]struct{}, len(mapped))

	for _, index := range mapped {
		if index < 0 || index >= len(model.Shipments) {
			return nil, nil, fmt.Errorf(
				"%w: parking map references shipment index %d, model has %d shipments",
				ErrInvalidConfig, index, len(model.Shipments),
			)
		}

		tag := parkingFor[index]
		if _, ok := parkings[tag]; !ok {
			return nil, nil, fmt.Errorf(
				"%w: shipment %d references unknown parking tag %q",
				ErrInvalidConfig, index, tag,
			)
		}

		key := deriveGroupKey(&model.Shipments[index], tag, grouping)
		group, ok := byKey[key]
		if !ok {
			group = &parkingGroup{key: key, label: makeGroupLabel(key)}
			byKey[key] = group
		}
		group.shipmentIndices = append(group.shipmentIndices, index)
		inParking[index] = struct{}{}
	}

	groups := make([]parkingGroup, 0, len(byKey))
	for _, group := range byKey {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].key.less(groups[j].key) })

	direct := make([]int, 0, len(model.Shipments)-len(inParking))
	for index := range model.Shipments {
		if _, ok := inParking[index]; !ok {
			direct = append(direct, index)
		}
	}

	return groups, direct, nil
}

// numRounds computes how many round vehicles a group gets.
func numRounds(groupSize, minAverageShipmentsPerRound int) int {
	return (groupSize + minAverageShipmentsPerRound - 1) / minAverageShipmentsPerRound
}
