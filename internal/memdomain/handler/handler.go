package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"memdomain/internal/memdomain"
)

// Handler exposes read-only introspection over the domain registry. It is a
// thin transport layer: discovery goes through the same GetFirst/GetNext scan
// consumers use, so the listing reflects live registry state.
type Handler struct {
	logger   *slog.Logger
	registry *memdomain.Registry
}

// New creates an introspection Handler.
func New(registry *memdomain.Registry, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, registry: registry}
}

// Register registers the introspection routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/domains", h.handleListDomains)
	r.Get("/domains/{id}", h.handleListDomainsByID)
}

type domainView struct {
	DeviceID    string `json:"device_id"`
	DeviceType  string `json:"device_type"`
	Translation bool   `json:"translation"`
	Fetch       bool   `json:"fetch"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListDomains(w http.ResponseWriter, r *http.Request) {
	h.writeDomains(w, r, "")
}

func (h *Handler) handleListDomainsByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.registry.GetFirst(id) == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.writeDomains(w, r, id)
}

func (h *Handler) writeDomains(w http.ResponseWriter, r *http.Request, idFilter string) {
	views := make([]domainView, 0)
	for d := h.registry.GetFirst(idFilter); d != nil; d = h.registry.GetNext(d, idFilter) {
		views = append(views, domainView{
			DeviceID:    d.DeviceID(),
			DeviceType:  d.DeviceType().String(),
			Translation: d.HasTranslation(),
			Fetch:       d.HasFetch(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil && h.logger != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode domain listing", "error", err.Error())
	}
}
