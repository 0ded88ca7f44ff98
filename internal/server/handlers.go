package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/katalog/internal/config"
	"github.com/hyperjump/katalog/internal/keyword"
	"github.com/hyperjump/katalog/internal/models"
	"github.com/hyperjump/katalog/internal/search"
	"github.com/hyperjump/katalog/internal/storage"
	"github.com/hyperjump/katalog/internal/vector"
)

// textSearchRequest is the JSON body of a text search.
type textSearchRequest struct {
	Text      string   `json:"text"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.runSearch(w, r, &query)
}

func (s *Server) handleSearchText(w http.ResponseWriter, r *http.Request) {
	var req textSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.runSearch(w, r, &models.SearchQuery{
		Mode:      models.ModeText,
		Text:      req.Text,
		TopK:      req.TopK,
		Threshold: req.Threshold,
	})
}

func (s *Server) handleSearchImage(w http.ResponseWriter, r *http.Request) {
	query, err := parseMultipartQuery(w, r, models.ModeImage)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.runSearch(w, r, query)
}

func (s *Server) handleSearchMultimodal(w http.ResponseWriter, r *http.Request) {
	query, err := parseMultipartQuery(w, r, models.ModeMultimodal)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.runSearch(w, r, query)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	query := &models.SearchQuery{Mode: models.ModeSimilar, ItemID: chi.URLParam(r, "id")}
	values := r.URL.Query()
	var err error
	if query.TopK, err = parseTopK(values.Get("top_k")); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if v := values.Get("exclude_self"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "exclude_self must be a boolean")
			return
		}
		query.ExcludeSelf = &b
	}
	s.runSearch(w, r, query)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, query *models.SearchQuery) {
	s.logger.Debug("search request",
		zap.String("mode", string(query.Mode)),
		zap.String("text", query.Text),
		zap.Int("image_bytes", len(query.Image)),
		zap.String("item_id", query.ItemID),
		zap.Int("top_k", query.TopK))
	response, err := s.engine.Search(r.Context(), query)
	if err != nil {
		s.respondFailure(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

// parseMultipartQuery reads the "image" file and the "text", "top_k" and
// "threshold" fields. A missing image is left for the engine to reject.
func parseMultipartQuery(w http.ResponseWriter, r *http.Request, mode models.SearchMode) (*models.SearchQuery, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %v", err)
	}
	query := &models.SearchQuery{Mode: mode}
	if mode == models.ModeMultimodal {
		query.Text = r.FormValue("text")
	}
	var err error
	if query.TopK, err = parseTopK(r.FormValue("top_k")); err != nil {
		return nil, err
	}
	if v := r.FormValue("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("threshold must be a number")
		}
		query.Threshold = &t
	}
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return query, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid image upload: %v", err)
	}
	defer file.Close()
	if query.Image, err = io.ReadAll(file); err != nil {
		return nil, fmt.Errorf("failed to read image: %v", err)
	}
	return query, nil
}

func parseTopK(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("top_k must be a positive integer")
	}
	return n, nil
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.engine.Item(chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, "get item failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	var items []models.Item
	if q := r.URL.Query().Get("q"); q != "" {
		if s.keywords == nil {
			s.respondError(w, http.StatusNotImplemented, "keyword filter not available")
			return
		}
		filtered, err := s.keywords.Filter(r.Context(), q)
		if errors.Is(err, keyword.ErrNotBuilt) {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		if err != nil {
			s.respondFailure(w, "keyword filter failed", err)
			return
		}
		items = filtered
	} else {
		items = s.engine.Items()
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := items[:0]
		for _, item := range items {
			if strings.EqualFold(item.Category, category) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"stats": s.engine.Stats(),
	}
	if s.config != nil {
		st := s.config.Storage
		resp["source"] = st.Source
		resp["embedding_model"] = s.config.Embedding.ModelID
		var paths []string
		if st.Source == config.SourceSQLite {
			paths = []string{st.DatabasePath}
		} else {
			paths = []string{st.ItemsPath, st.EmbeddingsPath}
		}
		if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reloader == nil {
		s.respondError(w, http.StatusNotImplemented, "reload not available")
		return
	}
	if err := s.reloader.Reload(r.Context()); err != nil {
		s.respondFailure(w, "reload failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "reloaded",
		"stats":  s.engine.Stats(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"total_products": s.engine.Stats().TotalItems,
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vector.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, vector.ErrInvalidArgument),
		errors.Is(err, vector.ErrShape):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrEmbeddingFailure):
		return http.StatusBadGateway
	case errors.Is(err, vector.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
