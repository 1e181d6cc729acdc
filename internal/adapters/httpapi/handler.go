// Package httpapi exposes the ship-building service as JSON over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"shipyard/internal/archive"
	"shipyard/internal/core"
	"shipyard/pkg/domain"
)

// Prefix is the mount point of every route.
const Prefix = "/api/v1"

const maxDocumentBytes = 4 << 20

// Catalog lists the templates offered to clients.
type Catalog interface {
	Templates() []domain.Template
	ByCategory(category domain.Category) []domain.Template
}

// Archive stores named session documents.
type Archive interface {
	Save(ctx context.Context, name string, doc []byte, overwrite bool) (archive.Entry, error)
	Load(ctx context.Context, name string) ([]byte, archive.Entry, error)
	List(ctx context.Context) ([]archive.Entry, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// Handler routes /api/v1 requests to the service.
type Handler struct {
	Service *core.Service
	Catalog Catalog
	Archive Archive
	Logger  core.Logger

	router *mux.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithArchive enables the /archives routes.
func WithArchive(a Archive) Option {
	return func(h *Handler) { h.Archive = a }
}

// WithLogger sets the request logger.
func WithLogger(l core.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.Logger = l
		}
	}
}

// NewHandler constructs the HTTP handler.
func NewHandler(svc *core.Service, cat Catalog, opts ...Option) *Handler {
	h := &Handler{Service: svc, Catalog: cat, Logger: nopLogger{}}
	for _, opt := range opts {
		opt(h)
	}
	h.router = h.routes()
	return h
}

func (h *Handler) routes() *mux.Router {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "endpoint not found")
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notAllowed

	// Subrouters answer their own misses; the root handlers never see them.
	api := r.PathPrefix(Prefix).Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = notAllowed
	api.HandleFunc("/catalog", h.handleCatalog).Methods(http.MethodGet)
	api.HandleFunc("/session", h.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.handleStats).Methods(http.MethodGet)

	api.HandleFunc("/inventory", h.handleAddInventory).Methods(http.MethodPost)
	api.HandleFunc("/inventory/core-set", h.handleAddCoreSet).Methods(http.MethodPost)
	api.HandleFunc("/inventory/{templateId}", h.handleDiscardInventory).Methods(http.MethodDelete)

	api.HandleFunc("/placements/preview", h.handlePreview).Methods(http.MethodGet)
	api.HandleFunc("/placements", h.handlePlace).Methods(http.MethodPost)
	api.HandleFunc("/placements/{instanceId}", h.handleRemove).Methods(http.MethodDelete)
	api.HandleFunc("/grid", h.handleResize).Methods(http.MethodPut)

	api.HandleFunc("/rooms/{instanceId}/health", h.handleHealth).Methods(http.MethodPut)
	api.HandleFunc("/rooms/{instanceId}/tune", h.handleTune).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{instanceId}/tune", h.handleUntune).Methods(http.MethodDelete)

	api.HandleFunc("/pilot-skill", h.handlePilotSkill).Methods(http.MethodPut)
	api.HandleFunc("/room-cap", h.handleRoomCap).Methods(http.MethodPut)
	api.HandleFunc("/surge/reset", h.handleResetSurge).Methods(http.MethodPost)
	api.HandleFunc("/clear", h.handleClear).Methods(http.MethodPost)

	api.HandleFunc("/export", h.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/import", h.handleImport).Methods(http.MethodPost)

	api.HandleFunc("/archives", h.handleListArchives).Methods(http.MethodGet)
	api.HandleFunc("/archives/{name}", h.handleGetArchive).Methods(http.MethodGet)
	api.HandleFunc("/archives/{name}", h.handleSaveArchive).Methods(http.MethodPut)
	api.HandleFunc("/archives/{name}", h.handleDeleteArchive).Methods(http.MethodDelete)
	api.HandleFunc("/archives/{name}/restore", h.handleRestoreArchive).Methods(http.MethodPost)
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.Logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		writeError(w, http.StatusInternalServerError, "internal", "catalog not configured")
		return
	}
	templates := h.Catalog.Templates()
	if category := r.URL.Query().Get("category"); category != "" {
		c := domain.Category(category)
		if !c.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown category")
			return
		}
		templates = h.Catalog.ByCategory(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Service.Session(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": newSessionView(s)})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.Stats(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": st, "coreStatus": st.Core.String()})
}

type templateRequest struct {
	TemplateID string `json:"templateId"`
}

func (h *Handler) handleAddInventory(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TemplateID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "templateId is required")
		return
	}
	inst, res, err := h.Service.AddToInventory(r.Context(), req.TemplateID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusCreated, map[string]any{"instance": inst}, res)
}

func (h *Handler) handleAddCoreSet(w http.ResponseWriter, r *http.Request) {
	created, res, err := h.Service.AddCoreSet(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusCreated, map[string]any{"instances": created}, res)
}

func (h *Handler) handleDiscardInventory(w http.ResponseWriter, r *http.Request) {
	inst, res, err := h.Service.DiscardFromInventory(r.Context(), mux.Vars(r)["templateId"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"instance": inst}, res)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cell, err := strconv.Atoi(q.Get("cell"))
	if err != nil || q.Get("templateId") == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "templateId and numeric cell are required")
		return
	}
	preview, err := h.Service.PreviewPlacement(r.Context(), q.Get("templateId"), cell)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"preview": preview, "needsDecision": preview.NeedsDecision()})
}

type placeRequest struct {
	TemplateID string `json:"templateId"`
	Cell       *int   `json:"cell"`
	Decision   string `json:"decision"`
	Replace    bool   `json:"replace"`
}

func (h *Handler) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TemplateID == "" || req.Cell == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "templateId and cell are required")
		return
	}
	decision, ok := core.ParseDecision(req.Decision)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "decision must be ask, replace or cancel")
		return
	}
	if req.Replace {
		decision = core.DecisionReplace
	}
	out, res, err := h.Service.PlaceWithDecision(r.Context(), req.TemplateID, *req.Cell, decision)
	if errors.Is(err, domain.ErrDecisionRequired) {
		h.confirmationRequired(w, r, req.TemplateID, *req.Cell, err)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"placement": out}, res)
}

// confirmationRequired answers the first phase of a replace: the client
// repeats the request with replace=true or decision=cancel.
func (h *Handler) confirmationRequired(w http.ResponseWriter, r *http.Request, templateID string, cell int, cause error) {
	body := map[string]any{"error": cause.Error(), "code": "confirmation_required"}
	if preview, err := h.Service.PreviewPlacement(r.Context(), templateID, cell); err == nil {
		body["occupant"] = preview.Occupant
		body["coordinate"] = preview.Coordinate
	}
	writeJSON(w, http.StatusConflict, body)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	inst, res, err := h.Service.RemoveFromGrid(r.Context(), mux.Vars(r)["instanceId"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"instance": inst}, res)
}

type gridRequest struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func (h *Handler) handleResize(w http.ResponseWriter, r *http.Request) {
	var req gridRequest
	if !decodeBody(w, r, &req) {
		return
	}
	orphans, res, err := h.Service.ResizeGrid(r.Context(), req.Rows, req.Cols)
	if err != nil {
		h.fail(w, err)
		return
	}
	if orphans == nil {
		orphans = []core.RoomInstance{}
	}
	writeResult(w, http.StatusOK, map[string]any{"orphans": orphans}, res)
}

type healthRequest struct {
	HP *int `json:"hp"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	var req healthRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.HP == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "hp is required")
		return
	}
	inst, res, err := h.Service.SetInstanceHealth(r.Context(), mux.Vars(r)["instanceId"], *req.HP)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"instance": inst}, res)
}

func (h *Handler) handleTune(w http.ResponseWriter, r *http.Request) {
	remaining, res, err := h.Service.Tune(r.Context(), mux.Vars(r)["instanceId"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"surge": remaining}, res)
}

func (h *Handler) handleUntune(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Untune(r.Context(), mux.Vars(r)["instanceId"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"tuned": false}, res)
}

type valueRequest struct {
	Value *int `json:"value"`
}

func (h *Handler) decodeValue(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req valueRequest
	if !decodeBody(w, r, &req) {
		return 0, false
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "value is required")
		return 0, false
	}
	return *req.Value, true
}

func (h *Handler) handlePilotSkill(w http.ResponseWriter, r *http.Request) {
	n, ok := h.decodeValue(w, r)
	if !ok {
		return
	}
	stored, res, err := h.Service.SetPilotSkill(r.Context(), n)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"pilotSkill": stored}, res)
}

func (h *Handler) handleRoomCap(w http.ResponseWriter, r *http.Request) {
	n, ok := h.decodeValue(w, r)
	if !ok {
		return
	}
	res, err := h.Service.SetMaxRooms(r.Context(), n)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"maxRooms": n}, res)
}

func (h *Handler) handleResetSurge(w http.ResponseWriter, r *http.Request) {
	surge, res, err := h.Service.ResetSurge(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"surge": surge}, res)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.ClearAll(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"cleared": true}, res)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.Export(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeDocument(w, doc)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}
	res, err := h.Service.Import(r.Context(), doc)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeSession(w, r, res)
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, res core.Result) {
	s, err := h.Service.Session(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"session": newSessionView(s)}, res)
}

func writeDocument(w http.ResponseWriter, doc []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func readDocument(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	doc, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "document too large")
		return nil, false
	}
	return doc, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, status int, body map[string]any, res core.Result) {
	if len(res.Violations) > 0 {
		body["violations"] = res.Violations
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": message, "code": code})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
