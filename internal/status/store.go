// Package status persists per-row active/inactive flags and reconciles them
// with freshly fetched report rows.
//
// A flag is keyed by (scope, campaign id, row key), where the scope is the
// credential the flags belong to. Flags are stored as 1 (active) or
// 0 (inactive); a key with no persisted entry is active by definition.
package status

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied means the persistence backend rejected a read or
	// write. The deployment's backend access rules need fixing; the failed
	// operation was aborted and no other key was touched.
	ErrPermissionDenied = errors.New("status store permission denied")
)

// CampaignStatus maps a row key to its persisted flag, 1 active, 0 inactive
type CampaignStatus map[string]int

// ScopeStatus maps a campaign id to its per-key flags for one scope
type ScopeStatus map[string]CampaignStatus

// Get returns the flags for one campaign, never nil
func (s ScopeStatus) Get(campaignID string) CampaignStatus {
	if cs, ok := s[campaignID]; ok {
		return cs
	}
	return CampaignStatus{}
}

// Set records one flag, creating the campaign map if needed
func (s ScopeStatus) Set(campaignID, key string, active bool) {
	cs, ok := s[campaignID]
	if !ok {
		cs = CampaignStatus{}
		s[campaignID] = cs
	}
	if active {
		cs[key] = 1
	} else {
		cs[key] = 0
	}
}

// Store durably persists per-row flags. Implementations must treat an
// unknown scope as empty, and writing the same value twice must leave the
// persisted state unchanged.
type Store interface {
	// GetAll returns every persisted flag under the scope
	GetAll(ctx context.Context, scope string) (ScopeStatus, error)
	// SetOne persists a single flag
	SetOne(ctx context.Context, scope, campaignID, key string, active bool) error
	// DeleteScope removes every flag under the scope (logout / key rotation)
	DeleteScope(ctx context.Context, scope string) error
}
