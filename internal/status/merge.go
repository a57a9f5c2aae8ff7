package status

// Effective computes the displayed flag for every fetched row key.
// A key with a persisted entry takes that entry's value; a key never
// toggled before defaults to active. The merge is pure: it depends only on
// its two inputs.
func Effective(keys []string, persisted CampaignStatus) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		v, ok := persisted[k]
		m[k] = !ok || v != 0
	}
	return m
}
