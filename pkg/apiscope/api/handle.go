package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/identity-admin/pkg/apiscope"
	"github.com/tendant/identity-admin/pkg/common"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
)

type Handle struct {
	service *apiscope.ApiScopeService
}

func NewHandle(service *apiscope.ApiScopeService) *Handle {
	return &Handle{service: service}
}

func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/apiscopes", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Add)
		r.Get("/names", h.Names)

		r.Get("/properties/{propertyId}", h.GetProperty)
		r.Delete("/properties/{propertyId}", h.DeleteProperty)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/properties", h.ListProperties)
			r.Post("/properties", h.AddProperty)
		})
	})
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	if c, ok := apperrors.AsConflict[apiscope.ApiScope](err); ok {
		common.RenderConflict(w, r, c.Code, c.Message, toApiScopeResponse(c.Candidate))
		return
	}
	if c, ok := apperrors.AsConflict[apiscope.PropertiesView](err); ok {
		common.RenderConflict(w, r, c.Code, c.Message, PropertyConflictResponse{
			PropertiesResponse: toPropertiesResponse(c.Candidate),
			Property:           toPropertyDTO(c.Candidate.Property),
		})
		return
	}
	common.RenderError(w, r, err)
}

func decodeScope(r *http.Request) (*apiscope.ApiScope, error) {
	var req ApiScopeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.ValidationFailed(map[string]interface{}{"name": "name is required"})
	}
	return toApiScope(req), nil
}

func (h *Handle) List(w http.ResponseWriter, r *http.Request) {
	search, page, pageSize := common.PageParams(r)
	list, err := h.service.GetApiScopes(r.Context(), search, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toApiScopeResponse))
}

// Names answers the scope pickers: ?scope=<fragment>&limit=<n>
func (h *Handle) Names(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.GetApiScopesName(r.Context(), r.URL.Query().Get("scope"), common.LimitParam(r))
	if err != nil {
		renderError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	common.RenderJSON(w, r, http.StatusOK, names)
}

func (h *Handle) Get(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	scope, err := h.service.GetApiScope(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toApiScopeResponse(*scope))
}

func (h *Handle) Add(w http.ResponseWriter, r *http.Request) {
	scope, err := decodeScope(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	id, err := h.service.AddApiScope(r.Context(), scope)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, IDResponse{ID: id})
}

func (h *Handle) Update(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	scope, err := decodeScope(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	scope.ID = id
	affected, err := h.service.UpdateApiScope(r.Context(), scope)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, AffectedResponse{Affected: affected})
}

func (h *Handle) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.service.DeleteApiScope(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeApiScopeDoesNotExist, "Api scope does not exist")
}

func (h *Handle) ListProperties(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	_, page, pageSize := common.PageParams(r)
	view, err := h.service.GetApiScopeProperties(r.Context(), id, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toPropertiesResponse(*view))
}

func (h *Handle) AddProperty(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req PropertyDTO
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if req.Key == "" {
		renderError(w, r, apperrors.ValidationFailed(map[string]interface{}{"key": "key is required"}))
		return
	}
	property := &apiscope.ApiScopeProperty{Key: req.Key, Value: req.Value}
	if _, err := h.service.AddApiScopeProperty(r.Context(), id, property); err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, IDResponse{ID: property.ID})
}

func (h *Handle) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "propertyId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	property, err := h.service.GetApiScopeProperty(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toPropertyDTO(*property))
}

func (h *Handle) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "propertyId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.service.DeleteApiScopeProperty(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeApiScopePropertyDoesNotExist, "Api scope property does not exist")
}
