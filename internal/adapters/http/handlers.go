package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jobrunner/meridian/internal/application"
	"github.com/jobrunner/meridian/internal/domain"
)

// maxBodyBytes bounds the size of a batch request body.
const maxBodyBytes = 8 << 20

// TransformBody is the JSON body of a batch transformation.
type TransformBody struct {
	From   int            `json:"from"`
	To     int            `json:"to"`
	Points []domain.Point `json:"points"`
}

// handleTransformPoint transforms the single point given in the query string.
func (s *Server) handleTransformPoint(w http.ResponseWriter, r *http.Request) {
	req, err := parseTransformParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.transforms.Transform(r.Context(), req)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":               resp.SourceSRID,
		"to":                 resp.TargetSRID,
		"point":              resp.Points[0],
		"wkt":                domain.CoordinateFromPoint(resp.Points[0], resp.TargetSRID).WKT(),
		"operation":          formatOperation(&resp.Operation),
		"processing_time_ms": float64(resp.ProcessingTime.Microseconds()) / 1000,
	})
}

// handleTransformBatch transforms every point of a JSON body.
func (s *Server) handleTransformBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var body TransformBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	resp, err := s.transforms.Transform(r.Context(), domain.TransformRequest{
		SourceSRID: body.From,
		TargetSRID: body.To,
		Points:     body.Points,
	})
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":               resp.SourceSRID,
		"to":                 resp.TargetSRID,
		"points":             resp.Points,
		"count":              len(resp.Points),
		"operation":          formatOperation(&resp.Operation),
		"processing_time_ms": float64(resp.ProcessingTime.Microseconds()) / 1000,
	})
}

// handleDescribe returns the pipeline between two systems.
func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseSRIDPair(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.transforms.Describe(r.Context(), from, to)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	out := formatOperation(summary)
	out["from"] = from
	out["to"] = to
	s.writeJSON(w, http.StatusOK, out)
}

// handleListCRS returns every known coordinate system.
func (s *Server) handleListCRS(w http.ResponseWriter, r *http.Request) {
	defs, err := s.registry.ListDefinitions(r.Context())
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	response := make([]map[string]interface{}, len(defs))
	for i := range defs {
		response[i] = formatDefinition(&defs[i], false)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"crs":   response,
		"count": len(defs),
	})
}

// handleGetCRS returns one coordinate system including its WKT.
func (s *Server) handleGetCRS(w http.ResponseWriter, r *http.Request) {
	srid, err := strconv.Atoi(mux.Vars(r)["srid"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid srid")
		return
	}

	def, err := s.registry.Definition(r.Context(), srid)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, formatDefinition(def, true))
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":              boolToStatus(details.Healthy),
		"ready":               details.Ready,
		"catalogs_loaded":     details.CatalogsLoaded,
		"catalogs_ready":      details.CatalogsReady,
		"definitions_indexed": details.DefinitionsIndexed,
		"components":          details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleListCatalogs returns all registered catalogs.
func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	catalogs, err := s.registry.ListCatalogs(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to list catalogs")
		return
	}

	response := make([]map[string]interface{}, len(catalogs))
	for i := range catalogs {
		response[i] = s.formatCatalog(r.Context(), &catalogs[i])
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"catalogs": response,
		"count":    len(catalogs),
	})
}

// handleGetCatalog returns a specific catalog.
func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	catalogID := mux.Vars(r)["catalogId"]

	cat, err := s.registry.GetCatalog(r.Context(), catalogID)
	if err != nil {
		if errors.Is(err, domain.ErrCatalogNotFound) {
			s.writeError(w, http.StatusNotFound, "Catalog not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Failed to get catalog")
		return
	}

	s.writeJSON(w, http.StatusOK, s.formatCatalog(r.Context(), cat))
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := openAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// handleSync handles the sync trigger endpoint.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncService.TriggerSync(r.Context())
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleSyncStatus reports the scheduler state.
func (s *Server) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.syncService.Status()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"interval":          st.Interval.String(),
		"last_sync_at":      st.LastSyncAt,
		"last_error":        st.LastError,
		"next_scheduled_at": st.NextScheduledAt,
	})
}

// parseTransformParams builds a single point request from ?from=&to=&x=&y=[&z=].
func parseTransformParams(r *http.Request) (domain.TransformRequest, error) {
	from, to, err := parseSRIDPair(r)
	if err != nil {
		return domain.TransformRequest{}, err
	}

	q := r.URL.Query()
	point := make(domain.Point, 0, 3)
	for _, name := range []string{"x", "y", "z"} {
		raw := q.Get(name)
		if raw == "" {
			if name == "z" {
				break
			}
			return domain.TransformRequest{}, fmt.Errorf("missing %s parameter", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.TransformRequest{}, fmt.Errorf("invalid %s parameter", name)
		}
		point = append(point, v)
	}

	if err := domain.CoordinateFromPoint(point, from).Validate(); err != nil {
		return domain.TransformRequest{}, err
	}

	return domain.TransformRequest{
		SourceSRID: from,
		TargetSRID: to,
		Points:     []domain.Point{point},
	}, nil
}

// parseSRIDPair reads the from and to parameters.
func parseSRIDPair(r *http.Request) (from, to int, err error) {
	q := r.URL.Query()
	if from, err = parseSRID(q.Get("from"), "from"); err != nil {
		return 0, 0, err
	}
	if to, err = parseSRID(q.Get("to"), "to"); err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func parseSRID(raw, name string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing %s parameter", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return v, nil
}

// formatOperation formats a pipeline summary for JSON output.
func formatOperation(op *domain.OperationSummary) map[string]interface{} {
	steps := op.Steps
	if steps == nil {
		steps = []string{}
	}
	return map[string]interface{}{
		"name":   op.Name,
		"type":   op.Type,
		"steps":  steps,
		"cached": op.Cached,
	}
}

// formatDefinition formats a coordinate system definition for JSON output.
func formatDefinition(d *domain.Definition, withWKT bool) map[string]interface{} {
	out := map[string]interface{}{
		"srid":      d.SRID,
		"name":      d.Name,
		"authority": d.Authority,
		"code":      d.Code,
		"kind":      d.Kind().String(),
	}
	if d.Catalog != "" {
		out["catalog"] = d.Catalog
	}
	if d.Description != "" {
		out["description"] = d.Description
	}
	if withWKT {
		wkt := d.WKT
		if wkt == "" && d.System != nil {
			wkt = d.System.WKT()
		}
		out["wkt"] = wkt
	}
	return out
}

// formatCatalog formats a catalog for JSON output.
func (s *Server) formatCatalog(ctx context.Context, cat *domain.Catalog) map[string]interface{} {
	status, _ := s.registry.GetCatalogStatus(ctx, cat.ID)
	out := map[string]interface{}{
		"id":          cat.ID,
		"name":        cat.Name,
		"path":        cat.Path,
		"format":      cat.Format,
		"size":        cat.Size,
		"definitions": cat.Definitions,
		"skipped":     cat.Skipped,
		"status":      status,
		"ready":       status == domain.StatusReady,
		"loaded_at":   cat.LoadedAt,
	}
	if cat.Metadata.Title != "" || cat.Metadata.Description != "" {
		out["metadata"] = map[string]interface{}{
			"title":       cat.Metadata.Title,
			"description": cat.Metadata.Description,
			"version":     cat.Metadata.Version,
			"keywords":    cat.Metadata.Keywords,
		}
	}
	return out
}

// handleServiceError maps application errors to HTTP status codes.
func (s *Server) handleServiceError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	switch status {
	case http.StatusInternalServerError:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, status, "Internal error")
		return
	case http.StatusTooManyRequests:
		w.Header().Set("Retry-After", "30")
	}
	s.writeError(w, status, err.Error())
}

// statusForError picks the HTTP status for an error. Convergence and
// unsupported errors are checked first so a failing point inside a batch
// keeps its own kind.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrConvergence), errors.Is(err, domain.ErrUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "status", status, "error", err)
		buf.Reset()
		status = http.StatusInternalServerError
		buf.WriteString(`{"error":"Internal Server Error","message":"Internal error"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
