package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/identity-admin/pkg/apiresource"
	"github.com/tendant/identity-admin/pkg/common"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/secrets"
)

// Handle serves the API resource administration endpoints
type Handle struct {
	service *apiresource.ApiResourceService
}

func NewHandle(service *apiresource.ApiResourceService) *Handle {
	return &Handle{service: service}
}

// RegisterRoutes mounts the endpoints under /apiresources
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/apiresources", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Add)

		r.Get("/secrets/{secretId}", h.GetSecret)
		r.Delete("/secrets/{secretId}", h.DeleteSecret)
		r.Get("/properties/{propertyId}", h.GetProperty)
		r.Delete("/properties/{propertyId}", h.DeleteProperty)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/secrets", h.ListSecrets)
			r.Post("/secrets", h.AddSecret)
			r.Get("/properties", h.ListProperties)
			r.Post("/properties", h.AddProperty)
		})
	})
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	if c, ok := apperrors.AsConflict[apiresource.ApiResource](err); ok {
		common.RenderConflict(w, r, c.Code, c.Message, toApiResourceResponse(c.Candidate))
		return
	}
	if c, ok := apperrors.AsConflict[apiresource.PropertiesView](err); ok {
		common.RenderConflict(w, r, c.Code, c.Message, PropertyConflictResponse{
			ChildListResponse: toPropertiesResponse(c.Candidate),
			Property:          toPropertyDTO(c.Candidate.Property),
		})
		return
	}
	common.RenderError(w, r, err)
}

func decodeResource(r *http.Request) (*apiresource.ApiResource, error) {
	var req ApiResourceRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.ValidationFailed(map[string]interface{}{"name": "name is required"})
	}
	return toApiResource(req), nil
}

func (h *Handle) List(w http.ResponseWriter, r *http.Request) {
	search, page, pageSize := common.PageParams(r)
	list, err := h.service.GetApiResources(r.Context(), search, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toApiResourceResponse))
}

func (h *Handle) Get(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	res, err := h.service.GetApiResource(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toApiResourceResponse(*res))
}

func (h *Handle) Add(w http.ResponseWriter, r *http.Request) {
	res, err := decodeResource(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	id, err := h.service.AddApiResource(r.Context(), res)
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
	affected, err := h.service.UpdateApiResource(r.Context(), res)
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
	affected, err := h.service.DeleteApiResource(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeApiResourceDoesNotExist, "Api resource does not exist")
}

func (h *Handle) ListSecrets(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	_, page, pageSize := common.PageParams(r)
	view, err := h.service.GetApiSecrets(r.Context(), id, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	resp := ChildListResponse[SecretResponse]{
		ApiResourceID:   view.ApiResourceID,
		ApiResourceName: view.ApiResourceName,
		Data:            make([]SecretResponse, 0, len(view.Secrets)),
		TotalCount:      view.TotalCount,
		PageSize:        view.PageSize,
	}
	for _, s := range view.Secrets {
		resp.Data = append(resp.Data, toSecretResponse(s))
	}
	common.RenderJSON(w, r, http.StatusOK, resp)
}

func (h *Handle) AddSecret(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req SecretRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if req.Value == "" {
		renderError(w, r, apperrors.ValidationFailed(map[string]interface{}{"value": "value is required"}))
		return
	}
	hashType, err := secrets.ParseHashType(req.HashType)
	if err != nil {
		renderError(w, r, apperrors.ValidationFailed(map[string]interface{}{"hashType": err.Error()}))
		return
	}

	secret := toSecret(req, hashType)
	if _, err := h.service.AddApiSecret(r.Context(), id, secret); err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, IDResponse{ID: secret.ID})
}

func (h *Handle) GetSecret(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "secretId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	secret, err := h.service.GetApiSecret(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toSecretResponse(*secret))
}

func (h *Handle) DeleteSecret(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "secretId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.service.DeleteApiSecret(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeApiSecretDoesNotExist, "Api secret does not exist")
}

func (h *Handle) ListProperties(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	_, page, pageSize := common.PageParams(r)
	view, err := h.service.GetApiResourceProperties(r.Context(), id, page, pageSize)
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

	property := &apiresource.ApiResourceProperty{Key: req.Key, Value: req.Value}
	if _, err := h.service.AddApiResourceProperty(r.Context(), id, property); err != nil {
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
	property, err := h.service.GetApiResourceProperty(r.Context(), id)
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
	affected, err := h.service.DeleteApiResourceProperty(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeApiResourcePropertyDoesNotExist, "Api resource property does not exist")
}
