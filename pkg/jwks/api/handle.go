package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/identity-admin/pkg/common"
	"github.com/tendant/identity-admin/pkg/jwks"
)

// KeyResponse omits the serialized key material
type KeyResponse struct {
	ID                string    `json:"id"`
	Version           int       `json:"version"`
	Created           time.Time `json:"created"`
	Use               string    `json:"use,omitempty"`
	Algorithm         string    `json:"algorithm"`
	IsX509Certificate bool      `json:"isX509Certificate"`
}

func toKeyResponse(k jwks.Key) KeyResponse {
	return KeyResponse{
		ID:                k.ID,
		Version:           k.Version,
		Created:           k.Created,
		Use:               k.Use,
		Algorithm:         k.Algorithm,
		IsX509Certificate: k.IsX509Certificate,
	}
}

type Handle struct {
	service *jwks.KeyService
}

func NewHandle(service *jwks.KeyService) *Handle {
	return &Handle{service: service}
}

func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/keys", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handle) List(w http.ResponseWriter, r *http.Request) {
	_, page, pageSize := common.PageParams(r)
	list, err := h.service.GetKeys(r.Context(), page, pageSize)
	if err != nil {
		common.RenderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toKeyResponse))
}

func (h *Handle) Get(w http.ResponseWriter, r *http.Request) {
	key, err := h.service.GetKey(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RenderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toKeyResponse(*key))
}

func (h *Handle) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.DeleteKey(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.RenderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
