package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/storage"
	"go.uber.org/zap"
)

const maxTitlesPerRequest = 10000

type explainRequest struct {
	Version string `json:"version,omitempty"`
	Title   string `json:"title"`
}

type indexResponse struct {
	Version     string `json:"version"`
	Fingerprint string `json:"fingerprint"`
	Entries     int    `json:"entries"`
	Dimensions  int    `json:"dimensions"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req models.ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Titles) > maxTitlesPerRequest {
		s.respondError(w, http.StatusRequestEntityTooLarge, "too many titles")
		return
	}
	if req.Save && s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "run storage not enabled")
		return
	}
	s.logger.Debug("classify request", zap.String("version", req.Version), zap.Int("titles", len(req.Titles)))

	resp, err := s.service.Classify(r.Context(), req.Version, req.Titles)
	if err != nil {
		s.logger.Error("classify failed", zap.Error(err))
		s.respondServiceError(w, err)
		return
	}
	if req.Save {
		run := &models.Run{
			ID:           uuid.NewString(),
			Version:      resp.Version,
			TitleCount:   resp.Total,
			RelatedCount: resp.TotalRelated,
			StaleIndex:   resp.StaleIndex,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.storage.CreateRun(r.Context(), run, resp.Results); err != nil {
			s.logger.Error("save run failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.RunID = run.ID
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	exp, err := s.service.Explain(r.Context(), req.Version, req.Title)
	if err != nil {
		s.logger.Error("explain failed", zap.Error(err))
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, exp)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")
	s.logger.Debug("rebuild index request", zap.String("version", version))
	ix, err := s.service.Rebuild(r.Context(), version)
	if err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, indexResponse{
		Version:     ix.Version(),
		Fingerprint: ix.Fingerprint(),
		Entries:     ix.Len(),
		Dimensions:  ix.Dimensions(),
	})
}

func (s *Server) handleListTaxonomies(w http.ResponseWriter, r *http.Request) {
	versions, err := s.service.Versions()
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if versions == nil {
		versions = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"versions": versions})
}

func (s *Server) handleGetTaxonomy(w http.ResponseWriter, r *http.Request) {
	tax, err := s.service.Taxonomy(chi.URLParam(r, "version"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tax.Document())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "run storage not enabled")
		return
	}
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	runs, err := s.storage.ListRuns(r.Context(), offset, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "run storage not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.storage.GetRun(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	results, err := s.storage.GetResults(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.RunDetail{Run: *run, Results: results})
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "run storage not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetRun(r.Context(), id); err != nil {
		s.respondServiceError(w, err)
		return
	}
	if err := s.storage.DeleteRun(r.Context(), id); err != nil {
		s.logger.Error("delete run failed", zap.Error(err))
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versions, err := s.service.Versions()
	if err != nil {
		s.logger.Error("status: list versions failed", zap.Error(err))
		s.respondServiceError(w, err)
		return
	}
	resp := map[string]interface{}{
		"versions": len(versions),
	}
	if s.storage != nil {
		runs, err := s.storage.CountRuns(ctx)
		if err != nil {
			s.logger.Error("status: count runs failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		results, err := s.storage.CountResults(ctx)
		if err != nil {
			s.logger.Error("status: count results failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["runs"] = runs
		resp["results"] = results
	}

	if s.config != nil {
		c := s.config
		resp["config"] = map[string]interface{}{
			"encoder_backend":    c.Encoder.Backend,
			"dimensions":         c.Encoder.Dimensions,
			"cache_backend":      c.Storage.CacheBackend,
			"default_version":    c.Classifier.DefaultVersion,
			"low_relevance":      c.Classifier.LowRelevanceThreshold,
			"centroid_threshold": c.Classifier.CentroidThreshold,
			"watch_enabled":      c.Watch.Enabled,
		}
		usage, total, err := storage.DiskUsage(
			storage.Usage{Name: "taxonomies", Path: c.Storage.TaxonomyDir},
			storage.Usage{Name: "index_cache", Path: c.Storage.CacheDir},
			storage.Usage{Name: "database", Path: c.Storage.DatabasePath},
		)
		if err == nil {
			resp["disk_usage"] = usage
			resp["disk_usage_bytes"] = total
		} else {
			s.logger.Warn("status: disk usage failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// statusFor maps error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrConfigNotFound), errors.Is(err, models.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConfigMalformed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrEncoderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	s.respondError(w, statusFor(err), err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
