package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/labeltower/pkg/buildinfo"
	"github.com/matzehuels/labeltower/pkg/observability"
	"github.com/matzehuels/labeltower/pkg/result"
	"github.com/matzehuels/labeltower/pkg/store"
)

type ctxKey struct{}

// Handler returns the router of the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.instrument,
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Get()})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.withCurrentReport)
		reportRoutes(r)
	})

	if s.store != nil {
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.listRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.withStoredReport)
				r.Get("/", getReport)
				reportRoutes(r)
			})
		})
	}
	return r
}

func reportRoutes(r chi.Router) {
	r.Get("/stats", getStats)
	r.Get("/labels", listLabels)
	r.Get("/labels/{name}", getLabel)
	r.Get("/packages/{name}", getPackage)
	r.Get("/builds/{name}", getBuild)
	r.Get("/unresolved", listUnresolved)
	r.Get("/conflicts", listConflicts)
}

// instrument logs every request and reports it to the server hooks.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		observability.Server().OnRequest(r.Context(), r.Method, route, status, elapsed)
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status, "duration", elapsed)
	})
}

func (s *Server) withCurrentReport(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rep := s.current()
		if rep == nil {
			writeError(w, http.StatusServiceUnavailable, "no report loaded")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, rep)))
	})
}

func (s *Server) withStoredReport(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "run not found")
			return
		case err != nil:
			s.logger.Error("load run", "id", chi.URLParam(r, "id"), "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load run")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, rec.Report)))
	})
}

func reportFrom(r *http.Request) *result.Report {
	rep, _ := r.Context().Value(ctxKey{}).(*result.Report)
	return rep
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func getReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reportFrom(r))
}

func getStats(w http.ResponseWriter, r *http.Request) {
	rep := reportFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{"run_id": rep.RunID, "stats": rep.Stats})
}

func listLabels(w http.ResponseWriter, r *http.Request) {
	rep := reportFrom(r)
	component := r.URL.Query().Get("component")
	out := make([]result.LabelReport, 0, len(rep.Labels))
	for _, l := range rep.Labels {
		if component == "" || l.Component == component {
			out = append(out, l)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func getLabel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	l, ok := reportFrom(r).Label(name)
	if !ok {
		writeError(w, http.StatusNotFound, "label "+name+" holds no packages")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// getPackage returns the placement of a package, or why it has none.
func getPackage(w http.ResponseWriter, r *http.Request) {
	rep := reportFrom(r)
	name := chi.URLParam(r, "name")
	if p, ok := rep.Package(name); ok {
		writeJSON(w, http.StatusOK, p)
		return
	}
	if u, ok := rep.UnresolvedPackage(name); ok {
		writeJSON(w, http.StatusOK, u)
		return
	}
	writeError(w, http.StatusNotFound, "package "+name+" not found")
}

func getBuild(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	b, ok := reportFrom(r).Build(name)
	if !ok {
		writeError(w, http.StatusNotFound, "build "+name+" not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func listUnresolved(w http.ResponseWriter, r *http.Request) {
	rep := reportFrom(r)
	kind := result.Kind(r.URL.Query().Get("kind"))
	switch kind {
	case "", result.Ambiguous, result.Unsatisfiable:
	default:
		writeError(w, http.StatusBadRequest, "kind must be ambiguous or unsatisfiable")
		return
	}
	out := make([]result.Unresolved, 0, len(rep.Unresolved))
	for _, u := range rep.Unresolved {
		if kind == "" || u.Kind == kind {
			out = append(out, u)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func listConflicts(w http.ResponseWriter, r *http.Request) {
	rep := reportFrom(r)
	conflicts := rep.Conflicts
	if conflicts == nil {
		conflicts = []result.ComponentConflict{}
	}
	cycles := rep.CycleConflicts
	if cycles == nil {
		cycles = []result.CycleConflict{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"components": conflicts,
		"cycles":     cycles,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
