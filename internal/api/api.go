// Package api serves the catalog over HTTP as JSON.
//
// Routes:
//
//	GET /api/digimon           filtered and sorted list
//	GET /api/digimon/{id}      detail with evolution neighbours
//	GET /api/lookups           the four lookup tables
//	GET /api/view              the caller's current view state
//
// Every list and detail request runs a fresh fetch cycle on the caller's
// [browse.Navigator], identified by a session cookie.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/suminhong/diribon2gg/internal/attribute"
	"github.com/suminhong/diribon2gg/internal/browse"
	"github.com/suminhong/diribon2gg/internal/catalog"
	"github.com/suminhong/diribon2gg/internal/observe"
	"github.com/suminhong/diribon2gg/internal/query"
	"github.com/suminhong/diribon2gg/internal/suggest"
)

const (
	// SessionCookie carries the browse session ID.
	SessionCookie = "diribon_session"

	// selectAll as a filter value selects every key of the lookup table.
	selectAll = "*"
)

// Config wires a [Handler].
type Config struct {
	Sessions *browse.Sessions

	// Loader serves /api/lookups, which is not a navigation.
	Loader browse.Loader

	// Suggester returns the matcher for unknown detail IDs. Nil uses
	// [suggest.New] defaults.
	Suggester func() *suggest.Matcher
}

// Handler serves the JSON API.
type Handler struct {
	sessions  *browse.Sessions
	loader    browse.Loader
	suggester func() *suggest.Matcher
}

// New returns a Handler for cfg.
func New(cfg Config) *Handler {
	h := &Handler{
		sessions:  cfg.Sessions,
		loader:    cfg.Loader,
		suggester: cfg.Suggester,
	}
	if h.suggester == nil {
		m := suggest.New()
		h.suggester = func() *suggest.Matcher { return m }
	}
	return h
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/digimon", h.List)
	mux.HandleFunc("GET /api/digimon/{id}", h.Detail)
	mux.HandleFunc("GET /api/lookups", h.Lookups)
	mux.HandleFunc("GET /api/view", h.View)
}

// List answers GET /api/digimon.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	sort, err := query.ParseSortKey(values.Get("sort"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, status{Status: "bad_request", Error: err.Error()})
		return
	}

	nav := h.navigator(w, r)
	lv, err := nav.ListWith(r.Context(), func(s *catalog.Store) query.Params {
		p := query.Params{Text: values.Get("q"), Sort: sort}
		for _, c := range catalog.Categories() {
			if sel, ok := selection(values[string(c)], s.Lookups(c)); ok {
				p = p.WithFilter(c, sel)
			}
		}
		return p
	})
	if err != nil {
		h.writeNavError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(lv))
}

// Detail answers GET /api/digimon/{id}. An unknown id answers 404 with
// suggestions.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	nav := h.navigator(w, r)

	dv, err := nav.Detail(r.Context(), id)
	if err != nil {
		h.writeNavError(r.Context(), w, err)
		return
	}
	if !dv.Found {
		names := make([]string, 0, dv.Store.Len(catalog.TableDigimons))
		for _, d := range dv.Store.Digimons() {
			names = append(names, d.ID())
		}
		writeJSON(w, http.StatusNotFound, notFound{
			Status:      "not_found",
			ID:          id,
			Suggestions: h.suggester().Suggest(id, names),
		})
		return
	}
	writeJSON(w, http.StatusOK, newDetail(dv))
}

// Lookups answers GET /api/lookups.
func (h *Handler) Lookups(w http.ResponseWriter, r *http.Request) {
	snap, err := h.loader.LoadCatalog(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Warn("lookups unavailable", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, status{Status: "unavailable"})
		return
	}

	out := make(map[catalog.Category][]attribute.Binding, 4)
	for _, c := range catalog.Categories() {
		lookups := snap.Store.Lookups(c)
		bs := make([]attribute.Binding, len(lookups))
		for i, l := range lookups {
			bs[i] = *attribute.Bind(c, l)
		}
		out[c] = bs
	}
	writeJSON(w, http.StatusOK, out)
}

// View answers GET /api/view with the caller's current view state. A caller
// without a session is idle.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	var v browse.View
	if id, ok := sessionID(r); ok {
		if nav, ok := h.sessions.Lookup(id); ok {
			v = nav.Current()
		}
	}
	writeJSON(w, http.StatusOK, v)
}

// navigator returns the caller's navigator, issuing a fresh session cookie
// when the request has none or carries one that is not a valid session ID.
func (h *Handler) navigator(w http.ResponseWriter, r *http.Request) *browse.Navigator {
	if id, ok := sessionID(r); ok {
		return h.sessions.Get(id)
	}
	id := browse.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return h.sessions.Get(id)
}

func sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	return browse.ParseID(c.Value)
}

func (h *Handler) writeNavError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, browse.ErrSuperseded):
		writeJSON(w, http.StatusConflict, status{Status: "superseded"})
	case errors.Is(err, browse.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, status{Status: "unavailable"})
	default:
		observe.Logger(ctx).Error("navigation failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, status{Status: "error"})
	}
}

// selection builds a filter from repeated (or comma-separated) query values.
// ok is false when the parameter is absent.
func selection(raw []string, lookups []catalog.Lookup) (query.Selection, bool) {
	var vals []string
	for _, r := range raw {
		for v := range strings.SplitSeq(r, ",") {
			v = strings.TrimSpace(v)
			if v == selectAll {
				return query.SelectAll(lookups), true
			}
			if v != "" {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return query.Selection{}, false
	}
	return query.NewSelection(vals...), true
}

type status struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type notFound struct {
	Status      string               `json:"status"`
	ID          string               `json:"id"`
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

// writeJSON encodes v before touching the response so an encoding failure
// can still answer 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
