package services

import (
	"testing"
)

func TestLocalShipmentLabelRoundTrip(t *testing.T) {
	label := MakeLocalShipmentLabel(17, "bread: special")
	if label != "17: bread: special" {
		t.Fatalf("label = %q", label)
	}

	index, err := ParseLocalShipmentLabel(label)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if index != 17 {
		t.Fatalf("index = %d, want 17", index)
	}
}

func TestParseLocalShipmentLabelMalformed(t *testing.T) {
	for _, label := range []string{"", "bread", "x: bread", "-1: bread"} {
		if _, err := ParseLocalShipmentLabel(label); err == nil {
			t.Errorf("ParseLocalShipmentLabel(%q) succeeded, want error", label)
		}
	}
}

func TestParseGlobalShipmentLabel(t *testing.T) {
	tests := []struct {
		label string
		kind  GlobalShipmentKind
		index int
	}{
		{MakeDirectShipmentLabel(3, "direct"), DirectShipment, 3},
		{MakeParkingRoundShipmentLabel(8, []string{"bread", "milk"}), ParkingRoundShipment, 8},
		{"s:0 ", DirectShipment, 0},
		{"p:12", ParkingRoundShipment, 12},
	}

	for _, tt := range tests {
		ref, err := ParseGlobalShipmentLabel(tt.label)
		if err != nil {
			t.Fatalf("ParseGlobalShipmentLabel(%q): %v", tt.label, err)
		}
		if ref.Kind != tt.kind || ref.Index != tt.index {
			t.Errorf("ParseGlobalShipmentLabel(%q) = %+v, want kind=%d index=%d",
				tt.label, ref, tt.kind, tt.index)
		}
	}

	for _, label := range []string{"", "bread", "q:1 x", "s:x y", "p:-2 z"} {
		if _, err := ParseGlobalShipmentLabel(label); err == nil {
			t.Errorf("ParseGlobalShipmentLabel(%q) succeeded, want error", label)
		}
	}
}

func TestParseLocalVehicleLabelTag(t *testing.T) {
	tests := []struct {
		label string
		tag   string
	}{
		{"P1/0", "P1"},
		{"P1/12", "P1"},
		{"P1 [start=2026-03-14T08:00:00Z end=2026-03-14T10:00:00Z]/1", "P1"},
		{"P1 [vehicles=(0,3)]/0", "P1"},
		{"P1 [refinement global_route:0 start:2]/0", "P1"},
	}

	for _, tt := range tests {
		tag, err := ParseLocalVehicleLabelTag(tt.label)
		if err != nil {
			t.Fatalf("ParseLocalVehicleLabelTag(%q): %v", tt.label, err)
		}
		if tag != tt.tag {
			t.Errorf("ParseLocalVehicleLabelTag(%q) = %q, want %q", tt.label, tag, tt.tag)
		}
	}

	for _, label := range []string{"", "P1", "/0", " [x]/0"} {
		if _, err := ParseLocalVehicleLabelTag(label); err == nil {
			t.Errorf("ParseLocalVehicleLabelTag(%q) succeeded, want error", label)
		}
	}
}

func TestRefinementVehicleLabelRoundTrip(t *testing.T) {
	ref := RefinementVehicleRef{
		GlobalRouteIndex:      2,
		FirstGlobalVisitIndex: 5,
		NumGlobalVisits:       3,
		ParkingTag:            "P1 east",
	}

	label := MakeRefinementVehicleLabel(ref)
	if label != "global_route:2 start:5 size:3 parking:P1 east" {
		t.Fatalf("label = %q", label)
	}

	parsed, err := ParseRefinementVehicleLabel(label)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != ref {
		t.Fatalf("parsed = %+v, want %+v", parsed, ref)
	}

	for _, bad := range []string{"", "global_route:2", "global_route:2 start:5 size:3 parking:"} {
		if _, err := ParseRefinementVehicleLabel(bad); err == nil {
			t.Errorf("ParseRefinementVehicleLabel(%q) succeeded, want error", bad)
		}
	}
}

func TestMakeLocalVehicleLabelGroupForms(t *testing.T) {
	plain := makeGroupLabel(parkingGroupKey{parkingTag: "P1"})
	if MakeLocalVehicleLabel(plain, 0) != "P1/0" {
		t.Fatalf("plain label = %q", MakeLocalVehicleLabel(plain, 0))
	}

	keyed := makeGroupLabel(parkingGroupKey{
		parkingTag:      "P1",
		startTime:       "2026-03-14T08:00:00Z",
		allowedVehicles: "0,1",
	})
	label := MakeLocalVehicleLabel(keyed, 2)
	if label != "P1 [start=2026-03-14T08:00:00Z vehicles=(0,1)]/2" {
		t.Fatalf("keyed label = %q", label)
	}

	tag, err := ParseLocalVehicleLabelTag(label)
	if err != nil || tag != "P1" {
		t.Fatalf("tag = %q, err = %v", tag, err)
	}
}
