package status

import "testing"

func TestEffectiveDefaultsActive(t *testing.T) {
	got := Effective([]string{"site-a", "site-b"}, CampaignStatus{})

	for _, k := range []string{"site-a", "site-b"} {
		if !got[k] {
			t.Errorf("expected %s to default to active", k)
		}
	}
}

func TestEffectivePersistedWins(t *testing.T) {
	keys := []string{"7", "12"}
	persisted := CampaignStatus{"7": 0}

	got := Effective(keys, persisted)

	if got["7"] {
		t.Error("expected key 7 to be inactive")
	}
	if !got["12"] {
		t.Error("expected key 12 to be active")
	}
	if len(got) != 2 {
		t.Errorf("expected 2 entries, got %d", len(got))
	}
}

func TestEffectiveIgnoresStaleEntries(t *testing.T) {
	// Entries for keys absent from the fetched rows must not appear
	persisted := CampaignStatus{"gone": 0, "7": 1}

	got := Effective([]string{"7"}, persisted)

	if _, ok := got["gone"]; ok {
		t.Error("expected entry for absent key to be dropped")
	}
	if !got["7"] {
		t.Error("expected explicit active entry to stay active")
	}
}

func TestEffectiveIdempotent(t *testing.T) {
	keys := []string{"a", "b", "c"}
	persisted := CampaignStatus{"a": 0, "b": 1}

	first := Effective(keys, persisted)
	second := Effective(keys, persisted)

	for k, v := range first {
		if second[k] != v {
			t.Errorf("merge not stable for key %s: %v then %v", k, v, second[k])
		}
	}
}

func TestScopeStatusSet(t *testing.T) {
	s := ScopeStatus{}

	s.Set("123", "site-a", false)
	s.Set("123", "site-b", true)

	cs := s.Get("123")
	if cs["site-a"] != 0 {
		t.Errorf("expected site-a = 0, got %d", cs["site-a"])
	}
	if cs["site-b"] != 1 {
		t.Errorf("expected site-b = 1, got %d", cs["site-b"])
	}

	if got := s.Get("missing"); got == nil {
		t.Error("Get for unknown campaign must return an empty map, not nil")
	}
}
