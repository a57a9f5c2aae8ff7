package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/trackboard/trackboard/internal/metrics"
)

// RemoteConfig contains settings for the remote document store
type RemoteConfig struct {
	BaseURL string
	// Owner is the pseudo-user id the documents are filed under.
	// Documents are keyed "{owner}_{scope}" so flags written under one API
	// key are invisible under another.
	Owner   string
	APIKey  string
	Timeout time.Duration
}

// RemoteStore persists flags in a remote per-owner document store.
//
// The store's merge semantics only shallow-merge top-level document fields,
// so SetOne must read the whole status map, set the one key and write the
// map back. This read-modify-write is not transactional: two concurrent
// SetOne calls under the same scope can race and the second write silently
// drops the first's change. Accepted for single-operator use; the cycle is
// counted in metrics and logged at debug level.
type RemoteStore struct {
	baseURL    string
	owner      string
	apiKey     string
	logger     *slog.Logger
	httpClient *http.Client
}

// statusDocument is the wire format of one scope's document
type statusDocument struct {
	Status ScopeStatus `json:"status"`
}

// NewRemoteStore creates a new remote document store client
func NewRemoteStore(cfg RemoteConfig, logger *slog.Logger) *RemoteStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	owner := cfg.Owner
	if owner == "" {
		owner = "default-user"
	}
	return &RemoteStore{
		baseURL: cfg.BaseURL,
		owner:   owner,
		apiKey:  cfg.APIKey,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// docPath returns the document path for a scope
func (s *RemoteStore) docPath(scope string) string {
	return "/v1/documents/site-status/" + url.PathEscape(s.owner+"_"+scope)
}

// GetAll returns every persisted flag under the scope. A missing document
// means nothing was ever toggled: every key is active.
func (s *RemoteStore) GetAll(ctx context.Context, scope string) (ScopeStatus, error) {
	var doc statusDocument
	found, err := s.request(ctx, http.MethodGet, s.docPath(scope), nil, &doc)
	if err != nil {
		s.track("read", "error")
		return nil, err
	}
	s.track("read", "ok")
	if !found || doc.Status == nil {
		return ScopeStatus{}, nil
	}
	return doc.Status, nil
}

// SetOne persists a single flag. Fetches the current document, sets the one
// key and writes the whole map back; see the type comment for the race this
// leaves open.
func (s *RemoteStore) SetOne(ctx context.Context, scope, campaignID, key string, active bool) error {
	if m := metrics.Global(); m != nil {
		m.StatusReadModifyWriteTotal.Inc()
	}
	s.logger.Debug("read-modify-write status update",
		"campaign_id", campaignID,
		"key", key,
		"active", active,
	)

	current, err := s.GetAll(ctx, scope)
	if err != nil {
		return err
	}
	current.Set(campaignID, key, active)

	if _, err := s.request(ctx, http.MethodPut, s.docPath(scope), &statusDocument{Status: current}, nil); err != nil {
		s.track("write", "error")
		return err
	}
	s.track("write", "ok")
	return nil
}

// DeleteScope removes the scope's document
func (s *RemoteStore) DeleteScope(ctx context.Context, scope string) error {
	if _, err := s.request(ctx, http.MethodDelete, s.docPath(scope), nil, nil); err != nil {
		return err
	}
	return nil
}

// request performs an HTTP request against the document store. The bool
// result reports whether the document exists (GET/DELETE of a missing
// document is not an error).
func (s *RemoteStore) request(ctx context.Context, method, path string, body, result any) (bool, error) {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("marshal document: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("document store request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, fmt.Errorf("%w: check the document store's access rules for owner %q", ErrPermissionDenied, s.owner)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, fmt.Errorf("document store HTTP %d", resp.StatusCode)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return false, fmt.Errorf("decode document: %w", err)
		}
	}
	return true, nil
}

func (s *RemoteStore) track(op, result string) {
	m := metrics.Global()
	if m == nil {
		return
	}
	if op == "read" {
		m.StatusReadsTotal.WithLabelValues("remote", result).Inc()
	} else {
		m.StatusWritesTotal.WithLabelValues("remote", result).Inc()
	}
}
