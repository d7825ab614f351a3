package domain

import "testing"

func TestEntitlementMapGetIsTotal(t *testing.T) {
	m := EntitlementMap{
		"core.people": {Enabled: true, Config: map[string]any{"limit": float64(250)}},
	}

	entry := m.Get("engage.groups")
	if entry.Enabled {
		t.Fatal("expected missing key to resolve disabled")
	}
	if entry.Config == nil {
		t.Fatal("expected missing key to resolve with an empty config, not nil")
	}

	var nilMap EntitlementMap
	if nilMap.Enabled("core.people") {
		t.Fatal("expected nil map to deny every key")
	}
}

func TestSubscriptionStatusEntitled(t *testing.T) {
	cases := []struct {
		status   SubscriptionStatus
		entitled bool
	}{
		{SubscriptionStatusActive, true},
		{SubscriptionStatusTrialing, true},
		{SubscriptionStatusCanceled, false},
		{SubscriptionStatus("PAUSED"), false},
		{SubscriptionStatus(""), false},
	}
	for _, tc := range cases {
		if got := tc.status.Entitled(); got != tc.entitled {
			t.Fatalf("status %q: expected entitled=%v, got %v", tc.status, tc.entitled, got)
		}
	}
}

func TestSnapshotVisibility(t *testing.T) {
	m := EntitlementMap{
		"core.people":   {Enabled: true, Config: map[string]any{"limit": float64(250)}},
		"engage.groups": {Enabled: false},
	}
	snapshot := m.Snapshot()

	if !IsVisible(snapshot, "core.people") {
		t.Fatal("expected enabled feature visible")
	}
	if IsVisible(snapshot, "engage.groups") {
		t.Fatal("expected disabled feature hidden")
	}
	if IsVisible(snapshot, "engage.checkin") {
		t.Fatal("expected absent feature hidden")
	}
	if IsVisible(nil, "core.people") {
		t.Fatal("expected nil snapshot to hide everything")
	}
	if IsVisible(snapshot, "") {
		t.Fatal("expected empty key hidden")
	}

	if snapshot["engage.groups"].Config == nil {
		t.Fatal("expected serialized entries to carry a non-nil config")
	}
}
