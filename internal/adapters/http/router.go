package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/vlasenkov/knowledge-base/internal/config"
	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
	"github.com/vlasenkov/knowledge-base/internal/observability/metrics"
)

type Router struct {
	cfg      config.Config
	uploader ports.DocumentUploader
	searcher ports.Searcher
	manager  ports.KnowledgeBaseManager
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	uploader ports.DocumentUploader,
	searcher ports.Searcher,
	manager ports.KnowledgeBaseManager,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		uploader: uploader,
		searcher: searcher,
		manager:  manager,
		metrics:  serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/knowledge-bases", rt.createKnowledgeBase)
	mux.HandleFunc("GET /v1/knowledge-bases/{id}", rt.getKnowledgeBase)
	mux.HandleFunc("PUT /v1/knowledge-bases/{id}/config", rt.updateSearchConfig)
	mux.HandleFunc("PUT /v1/knowledge-bases/{id}/status", rt.updateStatus)
	mux.HandleFunc("POST /v1/knowledge-bases/{id}/documents", rt.uploadDocument)
	mux.HandleFunc("DELETE /v1/knowledge-bases/{id}/documents/{document_id}", rt.removeDocument)
	mux.HandleFunc("POST /v1/knowledge-bases/{id}/search", rt.search)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxConcurrent,
		time.Duration(rt.cfg.APIQueueTimeoutSeconds)*time.Second)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string           `json:"name"`
		Description string           `json:"description"`
		CreatedBy   string           `json:"created_by"`
		Config      *searchConfigDTO `json:"config,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var cfg *domain.SearchConfiguration
	if req.Config != nil {
		parsed, err := req.Config.toDomain()
		if err != nil {
			writeError(w, err)
			return
		}
		cfg = &parsed
	}

	kb, err := rt.manager.Create(r.Context(), req.Name, req.Description, req.CreatedBy, cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, kb)
}

func (rt *Router) getKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	kb, err := rt.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kb)
}

func (rt *Router) updateSearchConfig(w http.ResponseWriter, r *http.Request) {
	var req searchConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	cfg, err := req.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := rt.manager.UpdateSearchConfiguration(r.Context(), r.PathValue("id"), cfg); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	status, err := domain.ParseKnowledgeBaseStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := rt.manager.UpdateStatus(r.Context(), r.PathValue("id"), status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	docType := r.FormValue("type")
	doc, err := rt.uploader.Upload(r.Context(), ports.UploadRequest{
		KnowledgeBaseID: r.PathValue("id"),
		UploadedBy:      r.FormValue("uploaded_by"),
		Title:           r.FormValue("title"),
		Description:     r.FormValue("description"),
		DocumentType:    docType,
		FileName:        fileHeader.Filename,
		ContentType:     fileHeader.Header.Get("Content-Type"),
		SizeBytes:       fileHeader.Size,
		Body:            file,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordUpload("api", string(doc.Type), doc.File.SizeBytes)
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) removeDocument(w http.ResponseWriter, r *http.Request) {
	err := rt.manager.RemoveDocument(r.Context(), r.PathValue("id"), r.PathValue("document_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string           `json:"user_id"`
		QueryText string           `json:"query_text"`
		QueryType string           `json:"query_type"`
		Filters   *searchFilterDTO `json:"filters,omitempty"`
		Config    *searchConfigDTO `json:"config,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	searchReq := ports.SearchRequest{
		KnowledgeBaseID: r.PathValue("id"),
		UserID:          req.UserID,
		QueryText:       req.QueryText,
		QueryType:       req.QueryType,
	}
	if req.Filters != nil {
		filters, err := req.Filters.toDomain()
		if err != nil {
			writeError(w, err)
			return
		}
		searchReq.Filters = filters
	}
	if req.Config != nil {
		cfg, err := req.Config.toDomain()
		if err != nil {
			writeError(w, err)
			return
		}
		searchReq.Config = &cfg
	}

	query, err := rt.searcher.Search(r.Context(), searchReq)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearch("api", string(query.Type), query.Succeeded, len(query.Results), query.Duration)
	}
	writeJSON(w, http.StatusOK, query)
}

type searchConfigDTO struct {
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	IncludeMetadata     bool    `json:"include_metadata"`
}

func (d searchConfigDTO) toDomain() (domain.SearchConfiguration, error) {
	return domain.NewSearchConfiguration(d.TopK, d.SimilarityThreshold, d.IncludeMetadata)
}

type searchFilterDTO struct {
	DocumentIDs   []string   `json:"document_ids,omitempty"`
	DocumentTypes []string   `json:"document_types,omitempty"`
	DateFrom      *time.Time `json:"date_from,omitempty"`
	DateTo        *time.Time `json:"date_to,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
}

func (d searchFilterDTO) toDomain() (domain.SearchFilters, error) {
	types := make([]domain.DocumentType, 0, len(d.DocumentTypes))
	for _, raw := range d.DocumentTypes {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		docType, err := domain.ParseDocumentType(raw)
		if err != nil {
			return domain.SearchFilters{}, err
		}
		types = append(types, docType)
	}
	return domain.NewSearchFilters(d.DocumentIDs, types, d.DateFrom, d.DateTo, d.Tags)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}
