package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trackboard/trackboard/internal/config"
	"github.com/trackboard/trackboard/internal/creds"
	"github.com/trackboard/trackboard/internal/dashboard/views"
	"github.com/trackboard/trackboard/internal/metrics"
	"github.com/trackboard/trackboard/internal/status"
	"github.com/trackboard/trackboard/internal/tracker"
)

const sessionCookie = "trackboard_session"

type Handlers struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    status.Store
	sessions *creds.Repository
	tracker  *tracker.Client
	views    *views.Engine
	seq      *FetchSeq
}

func NewHandlers(cfg *config.Config, logger *slog.Logger, store status.Store, sessions *creds.Repository, tc *tracker.Client, v *views.Engine) *Handlers {
	return &Handlers{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		sessions: sessions,
		tracker:  tc,
		views:    v,
		seq:      NewFetchSeq(),
	}
}

// Health check
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// session resolves the request's session, or (nil, nil) when absent
func (h *Handlers) session(r *http.Request) (*creds.Session, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, nil
	}
	return h.sessions.Get(c.Value)
}

// clearSession drops the cached credential and expires the cookie
func (h *Handlers) clearSession(w http.ResponseWriter, s *creds.Session) {
	if s != nil {
		if err := h.sessions.Delete(s.ID); err != nil {
			h.logger.Error("failed to delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// authReject handles an upstream 401: the cached key is invalid, so it is
// cleared everywhere and the user returns to the key-entry flow.
func (h *Handlers) authReject(w http.ResponseWriter, r *http.Request, s *creds.Session) {
	h.logger.Warn("reporting service rejected API key, clearing credential")
	if s != nil {
		if err := h.sessions.DeleteByAPIKey(s.APIKey); err != nil {
			h.logger.Error("failed to delete sessions for rejected key", "error", err)
		}
	}
	h.clearSession(w, s)
	http.Redirect(w, r, "/?err=auth", http.StatusSeeOther)
}

// Home renders the key-entry page without a session, the campaign list with one
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.logger.Error("session lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if s == nil {
		h.renderLogin(w, r)
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view := campaignsView{
		LoggedIn: true,
		From:     from.Format("2006-01-02"),
		To:       to.Format("2006-01-02"),
	}

	items, _, err := h.tracker.Campaigns(r.Context(), tracker.CampaignQuery{
		APIKey:   s.APIKey,
		DateFrom: from,
		DateTo:   to,
	})
	switch {
	case errors.Is(err, tracker.ErrAuthRejected):
		h.authReject(w, r, s)
		return
	case err != nil:
		h.logger.Error("campaign fetch failed", "error", err)
		view.Error = "The reporting service could not be reached. Try again."
	default:
		view.Campaigns = make([]campaignRow, len(items))
		for i, c := range items {
			view.Campaigns[i] = campaignRow{
				ID:    c.ID.String(),
				Title: c.Title,
				Stat:  c.Stat,
				Band:  CampaignBand(c.Stat.Profit),
			}
		}
	}

	h.render(w, "campaigns", view)
}

func (h *Handlers) renderLogin(w http.ResponseWriter, r *http.Request) {
	view := loginView{}
	switch r.URL.Query().Get("err") {
	case "auth":
		view.Error = "The reporting service rejected the API key. Enter it again."
	case "key":
		view.Error = "An API key is required."
	}
	h.render(w, "login", view)
}

// SessionCreate caches a submitted API key and opens a session
func (h *Handlers) SessionCreate(w http.ResponseWriter, r *http.Request) {
	apiKey := r.PostFormValue("api_key")
	if apiKey == "" {
		http.Redirect(w, r, "/?err=key", http.StatusSeeOther)
		return
	}

	s, err := h.sessions.Create(apiKey, h.cfg.Server.SessionTTL)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout drops the session and, when configured, the scope's status flags
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.logger.Error("session lookup failed", "error", err)
	}
	if s != nil && h.cfg.Storage.PurgeOnLogout {
		if err := h.store.DeleteScope(r.Context(), s.APIKey); err != nil {
			h.logger.Error("failed to delete status scope on logout", "error", err)
		}
	}
	h.clearSession(w, s)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// CampaignDetail renders one campaign's report with the status overlay
func (h *Handlers) CampaignDetail(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	campaignID := chi.URLParam(r, "id")

	params, err := parseReportParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view := detailView{
		LoggedIn:   true,
		CampaignID: campaignID,
		From:       params.from.Format("2006-01-02"),
		To:         params.to.Format("2006-01-02"),
		Group:      string(params.group),
		GroupSite:  params.group == tracker.GroupSite,
		SortBy:     params.sortBy,
		Direction:  string(params.direction),
		Sort:       buildSortLinks(campaignID, params),
	}
	switch r.URL.Query().Get("err") {
	case "perm":
		view.Error = "The status store denied access. Check the storage backend's access rules."
	case "save":
		view.Error = "Failed to save the status change."
	}

	// Tag the fetch so a slow response superseded by a newer request for
	// the same campaign is discarded instead of rendered.
	seqKey := s.ID + "|" + campaignID
	ctx, seq := h.seq.Begin(r.Context(), seqKey)

	rows, totals, err := h.tracker.Report(ctx, tracker.ReportQuery{
		APIKey:     s.APIKey,
		CampaignID: campaignID,
		DateFrom:   params.from,
		DateTo:     params.to,
		Group:      params.group,
		SortBy:     params.sortBy,
		Direction:  params.direction,
	})
	if h.dropIfStale(w, seqKey, seq, err) {
		return
	}
	switch {
	case errors.Is(err, tracker.ErrAuthRejected):
		h.authReject(w, r, s)
		return
	case errors.Is(err, tracker.ErrInvalidQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("report fetch failed", "campaign_id", campaignID, "error", err)
		view.Error = "The reporting service could not be reached. Try again."
		h.render(w, "detail", view)
		return
	}

	persisted := status.CampaignStatus{}
	if all, err := h.store.GetAll(r.Context(), s.APIKey); err != nil {
		h.logger.Error("status read failed", "campaign_id", campaignID, "error", err)
		if errors.Is(err, status.ErrPermissionDenied) {
			view.Error = "The status store denied access. Check the storage backend's access rules."
		} else {
			view.Error = "Stored status flags could not be read; showing everything as active."
		}
	} else {
		persisted = all.Get(campaignID)
	}

	effective := status.Effective(tracker.StatusKeys(rows, params.group), persisted)

	view.Totals = totals
	view.Rows = make([]detailRow, len(rows))
	for i, row := range rows {
		key := row.StatusKey(params.group)
		active := effective[key]
		toggleTo := "1"
		if active {
			toggleTo = "0"
		}
		view.Rows[i] = detailRow{
			Row:      row,
			Key:      key,
			Active:   active,
			ToggleTo: toggleTo,
			Band:     ProfitBand(row.Profit),
		}
	}

	h.render(w, "detail", view)
}

// StatusToggle writes one flag through to the status store and returns to
// the detail view, which re-renders from the persisted state.
func (h *Handlers) StatusToggle(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	campaignID := chi.URLParam(r, "id")

	key := r.PostFormValue("key")
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	active := r.PostFormValue("active") == "1"

	back := url.Values{}
	for _, p := range []string{"from", "to", "group", "sortby", "direction"} {
		if v := r.PostFormValue(p); v != "" {
			back.Set(p, v)
		}
	}

	if err := h.store.SetOne(r.Context(), s.APIKey, campaignID, key, active); err != nil {
		h.logger.Error("status write failed",
			"campaign_id", campaignID,
			"key", key,
			"active", active,
			"error", err,
		)
		if errors.Is(err, status.ErrPermissionDenied) {
			back.Set("err", "perm")
		} else {
			back.Set("err", "save")
		}
	}

	http.Redirect(w, r, "/campaigns/"+url.PathEscape(campaignID)+"?"+back.Encode(), http.StatusSeeOther)
}

// dropIfStale discards a fetch result that is no longer the latest issued
// for its key. Returns true when the response has been written.
func (h *Handlers) dropIfStale(w http.ResponseWriter, key string, seq uint64, fetchErr error) bool {
	stale := !h.seq.Done(key, seq) || errors.Is(fetchErr, context.Canceled)
	if !stale {
		return false
	}
	h.logger.Debug("dropping stale report fetch", "key", key, "seq", seq)
	if m := metrics.Global(); m != nil {
		m.StaleResponsesDroppedTotal.Inc()
	}
	w.WriteHeader(http.StatusNoContent)
	return true
}

func (h *Handlers) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.views.Render(w, name, data); err != nil {
		h.logger.Error("render failed", "template", name, "error", err)
	}
}

// View models

type loginView struct {
	LoggedIn bool
	Error    string
}

type campaignsView struct {
	LoggedIn  bool
	From, To  string
	Error     string
	Campaigns []campaignRow
}

type campaignRow struct {
	ID    string
	Title string
	Stat  tracker.Stat
	Band  string
}

type detailView struct {
	LoggedIn   bool
	CampaignID string
	From, To   string
	Group      string
	GroupSite  bool
	SortBy     string
	Direction  string
	Error      string
	Sort       sortLinks
	Totals     tracker.Row
	Rows       []detailRow
}

type detailRow struct {
	Row      tracker.Row
	Key      string
	Active   bool
	ToggleTo string
	Band     string
}

type sortLinks struct {
	Cost         sortLink
	TotalRevenue sortLink
	Profit       sortLink
	Purchase     sortLink
	Clicks       sortLink
}

type sortLink struct {
	URL   string
	Arrow string
}

// Request parsing helpers

type reportParams struct {
	from, to  time.Time
	group     tracker.Group
	sortBy    string
	direction tracker.Direction
}

func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from, to := now, now

	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q", v)
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q", v)
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("from date is after to date")
	}
	return from, to, nil
}

func parseReportParams(r *http.Request) (reportParams, error) {
	from, to, err := parseDateRange(r)
	if err != nil {
		return reportParams{}, err
	}

	group, err := tracker.ParseGroup(r.URL.Query().Get("group"))
	if err != nil {
		return reportParams{}, err
	}

	direction, err := tracker.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		return reportParams{}, err
	}

	sortBy := r.URL.Query().Get("sortby")
	if sortBy == "" {
		sortBy = "profit"
	}
	if !tracker.ValidSortField(sortBy) {
		return reportParams{}, fmt.Errorf("cannot sort by %q", sortBy)
	}

	return reportParams{
		from:      from,
		to:        to,
		group:     group,
		sortBy:    sortBy,
		direction: direction,
	}, nil
}

// buildSortLinks computes the header link and direction arrow per sortable
// column: clicking the current sort column flips direction, any other
// column starts ascending.
func buildSortLinks(campaignID string, p reportParams) sortLinks {
	link := func(field string) sortLink {
		dir := tracker.Asc
		arrow := ""
		if field == p.sortBy {
			if p.direction == tracker.Asc {
				dir = tracker.Desc
				arrow = " ↑"
			} else {
				arrow = " ↓"
			}
		}
		q := url.Values{}
		q.Set("from", p.from.Format("2006-01-02"))
		q.Set("to", p.to.Format("2006-01-02"))
		q.Set("group", string(p.group))
		q.Set("sortby", field)
		q.Set("direction", string(dir))
		return sortLink{
			URL:   "/campaigns/" + url.PathEscape(campaignID) + "?" + q.Encode(),
			Arrow: arrow,
		}
	}
	return sortLinks{
		Cost:         link("cost"),
		TotalRevenue: link("total_revenue"),
		Profit:       link("profit"),
		Purchase:     link("convtype1"),
		Clicks:       link("clicks"),
	}
}
