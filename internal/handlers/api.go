package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/aniketverma/jarvis-portfolio/internal/services"
)

const maxQueryBody = 64 << 10

type apiError struct {
	Error string `json:"error"`
}

func (m Main) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Error("Failed to encode response", slog.String(errLoggerKey, err.Error()))
	}
}

func (m Main) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) bool {
	if r.Method == allowed {
		return false
	}
	m.logger.Warn("Method not allowed", slog.String("method", r.Method), slog.String("path", r.URL.Path))
	w.Header().Set("Allow", allowed)
	m.writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
	return true
}

func (m Main) internalError(w http.ResponseWriter, msg string, err error) {
	m.logger.Error(msg, slog.String(errLoggerKey, err.Error()))
	m.writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal server error"})
}

// listHandler serves a GET endpoint returning the collection produced by load. An empty collection is
// encoded as [] rather than null.
func listHandler[T any](m Main, name string, load func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.methodNotAllowed(w, r, http.MethodGet) {
			return
		}
		items, err := load(r.Context())
		if err != nil {
			m.internalError(w, "Failed to load "+name, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		m.writeJSON(w, http.StatusOK, items)
	}
}

// HandlePersonalData serves GET /api/personal-data/. It answers {} when no profile is stored.
func (m Main) HandlePersonalData(w http.ResponseWriter, r *http.Request) {
	if m.methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	pd, err := m.store.PersonalData(r.Context())
	if err != nil {
		m.internalError(w, "Failed to load personal data", err)
		return
	}
	if pd == nil {
		m.writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	m.writeJSON(w, http.StatusOK, pd)
}

// HandleSkills serves GET /api/skills/.
func (m Main) HandleSkills(w http.ResponseWriter, r *http.Request) {
	listHandler(m, "skills", m.store.Skills)(w, r)
}

// HandleExperience serves GET /api/experience/.
func (m Main) HandleExperience(w http.ResponseWriter, r *http.Request) {
	listHandler(m, "experience", m.store.Experience)(w, r)
}

// HandleProjects serves GET /api/projects/.
func (m Main) HandleProjects(w http.ResponseWriter, r *http.Request) {
	listHandler(m, "projects", m.store.Projects)(w, r)
}

// HandleAchievements serves GET /api/achievements/.
func (m Main) HandleAchievements(w http.ResponseWriter, r *http.Request) {
	listHandler(m, "achievements", m.store.Achievements)(w, r)
}

// HandleBlogCategories serves GET /api/blog/categories/.
func (m Main) HandleBlogCategories(w http.ResponseWriter, r *http.Request) {
	listHandler(m, "blog categories", m.store.BlogCategories)(w, r)
}

// HandleBlogPosts serves GET /api/blog/posts/, optionally filtered by the "category" and "search" query
// parameters. Post bodies are left out of the listing.
func (m Main) HandleBlogPosts(w http.ResponseWriter, r *http.Request) {
	listHandler(m, "blog posts", func(ctx context.Context) ([]models.BlogPost, error) {
		return m.filteredPosts(ctx, r.URL.Query().Get("category"), r.URL.Query().Get("search"))
	})(w, r)
}

func (m Main) filteredPosts(ctx context.Context, category, search string) ([]models.BlogPost, error) {
	posts, err := m.store.BlogPosts(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]models.BlogPost, 0, len(posts))
	for _, p := range posts {
		if p.Matches(category, search) {
			res = append(res, p.Summary())
		}
	}
	return res, nil
}

// HandleBlogPost serves GET /api/blog/posts/{slug}/ and counts the read.
func (m Main) HandleBlogPost(w http.ResponseWriter, r *http.Request) {
	if m.methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	slug := r.PathValue("slug")
	post, err := m.store.ViewBlogPost(r.Context(), slug)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			m.writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
			return
		}
		m.internalError(w, "Failed to load blog post", err)
		return
	}
	m.publishViews(post)
	m.writeJSON(w, http.StatusOK, post)
}

// HandleServiceQuery serves POST /api/service-query/. Invalid submissions are answered with 400 and the
// first validation failure.
func (m Main) HandleServiceQuery(w http.ResponseWriter, r *http.Request) {
	if m.methodNotAllowed(w, r, http.MethodPost) {
		return
	}

	var q models.ServiceQuery
	dec := json.NewDecoder(io.LimitReader(r.Body, maxQueryBody))
	if err := dec.Decode(&q); err != nil {
		m.logger.Warn("Invalid service query body", slog.String(errLoggerKey, err.Error()))
		m.writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}
	if err := q.Validate(); err != nil {
		m.writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	id, err := m.store.AddServiceQuery(r.Context(), q)
	if err != nil {
		m.internalError(w, "Failed to store service query", err)
		return
	}
	q.ID = id

	m.logger.Info("Service query received", slog.String("id", id), slog.String("subject", q.Subject))
	m.writeJSON(w, http.StatusCreated, q)
}
