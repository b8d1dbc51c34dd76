package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/identity-admin/pkg/common"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/oauth2client"
)

// Handle serves the client administration endpoints
type Handle struct {
	clientService *oauth2client.ClientService
}

// NewHandle creates a new client administration handler
func NewHandle(clientService *oauth2client.ClientService) *Handle {
	return &Handle{
		clientService: clientService,
	}
}

// RegisterRoutes mounts the client endpoints under /clients
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Get("/", h.ListClients)
		r.Post("/", h.AddClient)

		r.Get("/lookups/grant-types", h.GrantTypes)
		r.Get("/lookups/scopes", h.Scopes)
		r.Get("/lookups/standard-claims", h.StandardClaims)
		r.Get("/lookups/signing-algorithms", h.SigningAlgorithms)
		r.Get("/lookups/secret-types", h.SecretTypes)

		r.Get("/secrets/{secretId}", h.GetSecret)
		r.Delete("/secrets/{secretId}", h.DeleteSecret)
		r.Get("/claims/{claimId}", h.GetClaim)
		r.Delete("/claims/{claimId}", h.DeleteClaim)
		r.Get("/properties/{propertyId}", h.GetProperty)
		r.Delete("/properties/{propertyId}", h.DeleteProperty)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetClient)
			r.Put("/", h.UpdateClient)
			r.Delete("/", h.RemoveClient)
			r.Post("/clone", h.CloneClient)

			r.Get("/secrets", h.ListSecrets)
			r.Post("/secrets", h.AddSecret)
			r.Get("/claims", h.ListClaims)
			r.Post("/claims", h.AddClaim)
			r.Get("/properties", h.ListProperties)
			r.Post("/properties", h.AddProperty)
		})
	})
}

// renderError maps client conflicts to their response shape before the shared mapping
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	if c, ok := apperrors.AsConflict[oauth2client.Client](err); ok {
		common.RenderConflict(w, r, c.Code, c.Message, toClientResponse(c.Candidate))
		return
	}
	if c, ok := apperrors.AsConflict[oauth2client.PropertiesView](err); ok {
		common.RenderConflict(w, r, c.Code, c.Message, PropertyConflictResponse{
			ChildListResponse: toPropertiesResponse(c.Candidate),
			Property:          toPropertyResponse(c.Candidate.Property),
		})
		return
	}
	common.RenderError(w, r, err)
}

func renderValidation(w http.ResponseWriter, r *http.Request, errs ValidationErrors) {
	common.RenderError(w, r, apperrors.ValidationFailed(errs.Details()))
}

// ListClients handles GET /clients
func (h *Handle) ListClients(w http.ResponseWriter, r *http.Request) {
	search, page, pageSize := common.PageParams(r)
	list, err := h.clientService.GetClients(r.Context(), search, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toClientResponse))
}

// GetClient handles GET /clients/{id}
func (h *Handle) GetClient(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	client, err := h.clientService.GetClient(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toClientResponse(*client))
}

// AddClient handles POST /clients
func (h *Handle) AddClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if errs := ValidateClientRequest(&req); len(errs) > 0 {
		renderValidation(w, r, errs)
		return
	}
	clientType, _ := oauth2client.ParseClientType(req.ClientType)

	id, err := h.clientService.AddClient(r.Context(), toClient(req, clientType))
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, IDResponse{ID: id})
}

// UpdateClient handles PUT /clients/{id}?updateClaims=&updateProperties=
func (h *Handle) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req ClientRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if errs := ValidateClientRequest(&req); len(errs) > 0 {
		renderValidation(w, r, errs)
		return
	}

	client := toClient(req, oauth2client.ClientTypeEmpty)
	client.ID = id
	affected, err := h.clientService.UpdateClient(r.Context(), client,
		common.BoolParam(r, "updateClaims"), common.BoolParam(r, "updateProperties"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, AffectedResponse{Affected: affected})
}

// RemoveClient handles DELETE /clients/{id}
func (h *Handle) RemoveClient(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.clientService.RemoveClient(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeClientDoesNotExist, "Client does not exist")
}

// CloneClient handles POST /clients/{id}/clone
func (h *Handle) CloneClient(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req CloneRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if req.ClientID == "" {
		renderValidation(w, r, ValidationErrors{{Field: "clientId", Message: "clientId is required"}})
		return
	}

	cloneID, err := h.clientService.CloneClient(r.Context(), id,
		&oauth2client.Client{ClientID: req.ClientID, ClientName: req.ClientName}, toCloneOptions(req))
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, IDResponse{ID: cloneID})
}

// ListSecrets handles GET /clients/{id}/secrets
func (h *Handle) ListSecrets(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	_, page, pageSize := common.PageParams(r)
	view, err := h.clientService.GetClientSecrets(r.Context(), id, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	resp := ChildListResponse[ClientSecretResponse]{
		ClientID:   view.ClientID,
		ClientName: view.ClientName,
		Data:       make([]ClientSecretResponse, 0, len(view.Secrets)),
		TotalCount: view.TotalCount,
		PageSize:   view.PageSize,
	}
	for _, s := range view.Secrets {
		resp.Data = append(resp.Data, toSecretResponse(s))
	}
	common.RenderJSON(w, r, http.StatusOK, resp)
}

// AddSecret handles POST /clients/{id}/secrets
func (h *Handle) AddSecret(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req ClientSecretRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	hashType, errs := ValidateSecretRequest(&req)
	if len(errs) > 0 {
		renderValidation(w, r, errs)
		return
	}

	secret := toSecret(req, hashType)
	if _, err := h.clientService.AddClientSecret(r.Context(), id, secret); err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, IDResponse{ID: secret.ID})
}

// GetSecret handles GET /clients/secrets/{secretId}
func (h *Handle) GetSecret(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "secretId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	secret, err := h.clientService.GetClientSecret(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toSecretResponse(*secret))
}

// DeleteSecret handles DELETE /clients/secrets/{secretId}
func (h *Handle) DeleteSecret(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "secretId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.clientService.DeleteClientSecret(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeClientSecretDoesNotExist, "Client secret does not exist")
}

// ListClaims handles GET /clients/{id}/claims
func (h *Handle) ListClaims(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	_, page, pageSize := common.PageParams(r)
	view, err := h.clientService.GetClientClaims(r.Context(), id, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	resp := ChildListResponse[ClientClaimResponse]{
		ClientID:   view.ClientID,
		ClientName: view.ClientName,
		Data:       make([]ClientClaimResponse, 0, len(view.Claims)),
		TotalCount: view.TotalCount,
		PageSize:   view.PageSize,
	}
	for _, c := range view.Claims {
		resp.Data = append(resp.Data, toClaimResponse(c))
	}
	common.RenderJSON(w, r, http.StatusOK, resp)
}

// AddClaim handles POST /clients/{id}/claims
func (h *Handle) AddClaim(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req ClientClaimResponse
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if req.Type == "" {
		renderValidation(w, r, ValidationErrors{{Field: "type", Message: "type is required"}})
		return
	}

	claim := &oauth2client.ClientClaim{Type: req.Type, Value: req.Value}
	if _, err := h.clientService.AddClientClaim(r.Context(), id, claim); err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, IDResponse{ID: claim.ID})
}

// GetClaim handles GET /clients/claims/{claimId}
func (h *Handle) GetClaim(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "claimId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	claim, err := h.clientService.GetClientClaim(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toClaimResponse(*claim))
}

// DeleteClaim handles DELETE /clients/claims/{claimId}
func (h *Handle) DeleteClaim(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "claimId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.clientService.DeleteClientClaim(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeClientClaimDoesNotExist, "Client claim does not exist")
}

// ListProperties handles GET /clients/{id}/properties
func (h *Handle) ListProperties(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	_, page, pageSize := common.PageParams(r)
	view, err := h.clientService.GetClientProperties(r.Context(), id, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toPropertiesResponse(*view))
}

// AddProperty handles POST /clients/{id}/properties
func (h *Handle) AddProperty(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req ClientPropertyResponse
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if req.Key == "" {
		renderValidation(w, r, ValidationErrors{{Field: "key", Message: "key is required"}})
		return
	}

	property := &oauth2client.ClientProperty{Key: req.Key, Value: req.Value}
	if _, err := h.clientService.AddClientProperty(r.Context(), id, property); err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, IDResponse{ID: property.ID})
}

// GetProperty handles GET /clients/properties/{propertyId}
func (h *Handle) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "propertyId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	property, err := h.clientService.GetClientProperty(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toPropertyResponse(*property))
}

// DeleteProperty handles DELETE /clients/properties/{propertyId}
func (h *Handle) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, err := common.IntURLParam(r, "propertyId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.clientService.DeleteClientProperty(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeClientPropertyDoesNotExist, "Client property does not exist")
}

// GrantTypes handles GET /clients/lookups/grant-types
func (h *Handle) GrantTypes(w http.ResponseWriter, r *http.Request) {
	common.RenderJSON(w, r, http.StatusOK, h.clientService.GetGrantTypes(r.URL.Query().Get("search"), common.LimitParam(r)))
}

// Scopes handles GET /clients/lookups/scopes
func (h *Handle) Scopes(w http.ResponseWriter, r *http.Request) {
	scopes, err := h.clientService.GetScopes(r.Context(), r.URL.Query().Get("search"), common.LimitParam(r))
	if err != nil {
		renderError(w, r, err)
		return
	}
	if scopes == nil {
		scopes = []string{}
	}
	common.RenderJSON(w, r, http.StatusOK, scopes)
}

// StandardClaims handles GET /clients/lookups/standard-claims
func (h *Handle) StandardClaims(w http.ResponseWriter, r *http.Request) {
	common.RenderJSON(w, r, http.StatusOK, h.clientService.GetStandardClaims(r.URL.Query().Get("search"), common.LimitParam(r)))
}

// SigningAlgorithms handles GET /clients/lookups/signing-algorithms
func (h *Handle) SigningAlgorithms(w http.ResponseWriter, r *http.Request) {
	common.RenderJSON(w, r, http.StatusOK, h.clientService.GetSigningAlgorithms(r.URL.Query().Get("search"), common.LimitParam(r)))
}

// SecretTypes handles GET /clients/lookups/secret-types
func (h *Handle) SecretTypes(w http.ResponseWriter, r *http.Request) {
	common.RenderJSON(w, r, http.StatusOK, oauth2client.SecretTypes())
}
