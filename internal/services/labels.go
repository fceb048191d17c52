package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// The external solver returns no foreign keys, so every cross-model
// reference travels through shipment and vehicle labels. All label
// formats are defined here; call sites never hand-format these strings.

// GlobalShipmentKind discriminates the two label shapes found in the
// global model.
type GlobalShipmentKind int

const (
	// DirectShipment is a base shipment served without a parking stop,
	// labeled "s:<baseIndex> <baseLabel>".
	DirectShipment GlobalShipmentKind = iota
	// ParkingRoundShipment is a virtual shipment standing in for one
	// local route, labeled "p:<localRouteIndex> <memberLabels>".
	ParkingRoundShipment
)

// GlobalShipmentRef is the parsed form of a global-model shipment label.
type GlobalShipmentRef struct {
	Kind GlobalShipmentKind
	// Index is the base shipment index for DirectShipment or the local
	// route index for ParkingRoundShipment.
	Index int
}

// MakeLocalShipmentLabel labels a local-model shipment with the base
// shipment index it was derived from.
func MakeLocalShipmentLabel(baseIndex int, baseLabel string) string {
	return fmt.Sprintf("%d: %s", baseIndex, baseLabel)
}

// ParseLocalShipmentLabel recovers the base shipment index from a
// local-model shipment label.
func ParseLocalShipmentLabel(label string) (int, error) {
	head, _, ok := strings.Cut(label, ": ")
	if !ok {
		return 0, fmt.Errorf("malformed local shipment label %q", label)
	}
	index, err := strconv.Atoi(head)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("malformed local shipment label %q: bad index", label)
	}
	return index, nil
}

// MakeDirectShipmentLabel labels a direct shipment in the global model.
func MakeDirectShipmentLabel(baseIndex int, baseLabel string) string {
	return fmt.Sprintf("s:%d %s", baseIndex, baseLabel)
}

// MakeParkingRoundShipmentLabel labels a virtual shipment that stands in
// for one local route. memberLabels are the base labels of the shipments
// served by that route.
func MakeParkingRoundShipmentLabel(localRouteIndex int, memberLabels []string) string {
	return fmt.Sprintf("p:%d %s", localRouteIndex, strings.Join(memberLabels, ","))
}

// ParseGlobalShipmentLabel parses either global label shape into its
// tagged form.
func ParseGlobalShipmentLabel(label string) (GlobalShipmentRef, error) {
	head, _, ok := strings.Cut(label, " ")
	if !ok {
		head = label
	}

	var kind GlobalShipmentKind
	var digits string
	switch {
	case strings.HasPrefix(head, "s:"):
		kind = DirectShipment
		digits = head[len("s:"):]
	case strings.HasPrefix(head, "p:"):
		kind = ParkingRoundShipment
		digits = head[len("p:"):]
	default:
		return GlobalShipmentRef{}, fmt.Errorf("malformed global shipment label %q", label)
	}

	index, err := strconv.Atoi(digits)
	if err != nil || index < 0 {
		return GlobalShipmentRef{}, fmt.Errorf("malformed global shipment label %q: bad index", label)
	}

	return GlobalShipmentRef{Kind: kind, Index: index}, nil
}

// makeGroupLabel renders the shared label prefix of a parking group's
// round vehicles: the parking tag plus a bracketed qualifier listing the
// group key's optional components. The bracket is omitted when the key
// has no components beyond the tag.
func makeGroupLabel(key parkingGroupKey) string {
	var parts []string
	if key.startTime != "" {
		parts = append(parts, "start="+key.startTime)
	}
	if key.endTime != "" {
		parts = append(parts, "end="+key.endTime)
	}
	if key.allowedVehicles != "" {
		parts = append(parts, "vehicles=("+key.allowedVehicles+")")
	}

	if len(parts) == 0 {
		return key.parkingTag
	}
	return key.parkingTag + " [" + strings.Join(parts, " ") + "]"
}

// MakeLocalVehicleLabel labels one round vehicle of a parking group.
func MakeLocalVehicleLabel(groupLabel string, round int) string {
	return fmt.Sprintf("%s/%d", groupLabel, round)
}

// ParseLocalVehicleLabelTag recovers the parking tag from a local
// vehicle label "<tag> [qualifier]/<round>" or "<tag>/<round>".
// Parking tags must not contain " [" or "/".
func ParseLocalVehicleLabelTag(label string) (string, error) {
	if i := strings.Index(label, " ["); i >= 0 {
		if i == 0 {
			return "", fmt.Errorf("malformed local vehicle label %q: empty tag", label)
		}
		return label[:i], nil
	}

	i := strings.LastIndex(label, "/")
	if i <= 0 {
		return "", fmt.Errorf("malformed local vehicle label %q", label)
	}
	return label[:i], nil
}

// RefinementVehicleRef identifies the consecutive-visit sequence a
// refinement vehicle was built for.
type RefinementVehicleRef struct {
	GlobalRouteIndex      int
	FirstGlobalVisitIndex int
	NumGlobalVisits       int
	ParkingTag            string
}

// MakeRefinementVehicleLabel labels the single vehicle of one
// refinement sub-model.
func MakeRefinementVehicleLabel(ref RefinementVehicleRef) string {
	return fmt.Sprintf(
		"global_route:%d start:%d size:%d parking:%s",
		ref.GlobalRouteIndex, ref.FirstGlobalVisitIndex, ref.NumGlobalVisits, ref.ParkingTag,
	)
}

// ParseRefinementVehicleLabel is the inverse of MakeRefinementVehicleLabel.
func ParseRefinementVehicleLabel(label string) (RefinementVehicleRef, error) {
	head, tag, ok := strings.Cut(label, " parking:")
	if !ok {
		return RefinementVehicleRef{}, fmt.Errorf("malformed refinement vehicle label %q", label)
	}

	var ref RefinementVehicleRef
	n, err := fmt.Sscanf(head, "global_route:%d start:%d size:%d",
		&ref.GlobalRouteIndex, &ref.FirstGlobalVisitIndex, &ref.NumGlobalVisits)
	if err != nil || n != 3 {
		return RefinementVehicleRef{}, fmt.Errorf("malformed refinement vehicle label %q", label)
	}
	if tag == "" {
		return RefinementVehicleRef{}, fmt.Errorf("malformed refinement vehicle label %q: empty tag", label)
	}

	ref.ParkingTag = tag
	return ref, nil
}

// formatKeyTime renders a group key time component; the zero time means
// "absent" and renders empty.
func formatKeyTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// formatKeyVehicles renders the sorted allowed-vehicle component of a
// group key, e.g. "0,3,5". nil means unrestricted and renders empty.
func formatKeyVehicles(indices []int) string {
	if len(indices) == 0 {
		return ""
	}
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
