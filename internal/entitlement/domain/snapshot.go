package domain

// SnapshotEntry mirrors FeatureEntry in a JSON-safe shape for transfer to the
// client-rendered layer.
type SnapshotEntry struct {
	Enabled bool           `json:"enabled"`
	Config  map[string]any `json:"config"`
}

// Snapshot is the serialized form of an EntitlementMap handed to the UI.
// Hiding an affordance based on it is a convenience, not an authorization
// boundary; every write path re-checks server-side.
type Snapshot map[string]SnapshotEntry

// Snapshot serializes the map for the UI boundary.
func (m EntitlementMap) Snapshot() Snapshot {
	out := make(Snapshot, len(m))
	for key, entry := range m {
		config := entry.Config
		if config == nil {
			config = map[string]any{}
		}
		out[string(key)] = SnapshotEntry{Enabled: entry.Enabled, Config: config}
	}
	return out
}

// IsVisible reports whether the UI may show the affordance for key. It fails
// closed: a nil snapshot, a missing key, or a disabled entry all hide it.
func IsVisible(snapshot Snapshot, key FeatureKey) bool {
	if len(snapshot) == 0 || key == "" {
		return false
	}
	entry, ok := snapshot[string(key)]
	if !ok {
		return false
	}
	return entry.Enabled
}
