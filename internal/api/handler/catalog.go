package handler

import (
	"net/http"
	"strings"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/service"
)

// CatalogHandler serves the service catalog to customers and admins.
type CatalogHandler struct {
	catalog Catalog
}

func NewCatalogHandler(catalog Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		RespondError(w, r, http.StatusBadRequest, "request/slug-required", "slug is required")
		return
	}
	svc, err := h.catalog.GetBySlug(r.Context(), slug)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Service retrieved", svc)
}

func (h *CatalogHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.ListActive(r.Context())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Services retrieved", services)
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)
	result, err := h.catalog.List(r.Context(), page, perPage, r.URL.Query().Get("q"))
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Services retrieved", result)
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	svc, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Service retrieved", svc)
}

type serviceRequest struct {
	Name        string        `json:"name"`
	ImageURL    string        `json:"image"`
	URL         string        `json:"url"`
	Color       string        `json:"color"`
	Rate        domain.Amount `json:"rate"`
	Description string        `json:"description"`
}

func (req serviceRequest) input() service.ServiceInput {
	return service.ServiceInput{
		Name:        req.Name,
		ImageURL:    req.ImageURL,
		URL:         req.URL,
		Color:       req.Color,
		Rate:        req.Rate,
		Description: req.Description,
	}
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req serviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	svc, err := h.catalog.Create(r.Context(), p.UserID, req.input())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusCreated, "Service created", svc)
}

func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req serviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	svc, err := h.catalog.Update(r.Context(), p.UserID, id, req.input())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Service updated", svc)
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.Delete(r.Context(), p.UserID, id); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Service deleted", nil)
}

func (h *CatalogHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	svc, err := h.catalog.ToggleStatus(r.Context(), p.UserID, id)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Service status updated", svc)
}
