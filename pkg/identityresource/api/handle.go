package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/identity-admin/pkg/common"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/identityresource"
)

// Handle serves /identityresources
type Handle struct {
	service *identityresource.IdentityResourceService
}

func NewHandle(service *identityresource.IdentityResourceService) *Handle {
	return &Handle{service: service}
}

func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/identityresources", func(r chi.Router) {
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
	if c, ok := apperrors.AsConflict[identityresource.IdentityResource](err); ok {
		common.RenderConflict(w, r, c.Code, c.Message, toIdentityResourceResponse(c.Candidate))
		return
	}
	if c, ok := apperrors.AsConflict[identityresource.PropertiesView](err); ok {
		common.RenderConflict(w, r, c.Code, c.Message, PropertyConflictResponse{
			PropertiesResponse: toPropertiesResponse(c.Candidate),
			Property:           toPropertyDTO(c.Candidate.Property),
		})
		return
	}
	common.RenderError(w, r, err)
}

func decodeResource(r *http.Request) (*identityresource.IdentityResource, error) {
	var req IdentityResourceRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.ValidationFailed(map[string]interface{}{"name": "name is required"})
	}
	return toIdentityResource(req), nil
}

func (h *Handle) List(w http.ResponseWriter, r *http.Request) {
	search, page, pageSize := common.PageParams(r)
	list, err := h.service.GetIdentityResources(r.Context(), search, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toIdentityResourceResponse))
}

// Names lists identity resource names: ?search=<fragment>&limit=<n>
func (h *Handle) Names(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.GetIdentityResourcesName(r.Context(), r.URL.Query().Get("search"), common.LimitParam(r))
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
	res, err := h.service.GetIdentityResource(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toIdentityResourceResponse(*res))
}

func (h *Handle) Add(w http.ResponseWriter, r *http.Request) {
	res, err := decodeResource(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	id, err := h.service.AddIdentityResource(r.Context(), res)
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
	res, err := decodeResource(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	res.ID = id
	affected, err := h.service.UpdateIdentityResource(r.Context(), res)
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
	affected, err := h.service.DeleteIdentityResource(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeIdentityResourceDoesNotExist, "Identity resource does not exist")
}

func (h *Handle) ListProperties(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	_, page, pageSize := common.PageParams(r)
	view, err := h.service.GetIdentityResourceProperties(r.Context(), id, page, pageSize)
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
	property := &identityresource.IdentityResourceProperty{Key: req.Key, Value: req.Value}
	if _, err := h.service.AddIdentityResourceProperty(r.Context(), id, property); err != nil {
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
	property, err := h.service.GetIdentityResourceProperty(r.Context(), id)
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
	affected, err := h.service.DeleteIdentityResourceProperty(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeIdentityResourcePropertyDoesNotExist, "Identity resource property does not exist")
}
