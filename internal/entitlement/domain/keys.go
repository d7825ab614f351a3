package domain

// Feature keys shipped in the reference plan catalog. Overrides and plan rows
// may carry keys outside this list; the resolver treats keys as opaque.
const (
	FeaturePeople     FeatureKey = "core.people"
	FeatureEvents     FeatureKey = "core.events"
	FeatureMessaging  FeatureKey = "comm.messaging"
	FeatureGroups     FeatureKey = "engage.groups"
	FeatureCheckin    FeatureKey = "engage.checkin"
	FeatureMealTrains FeatureKey = "engage.mealtrains"
)
