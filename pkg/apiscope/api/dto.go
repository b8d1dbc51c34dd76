package api

import "github.com/tendant/identity-admin/pkg/apiscope"

type ApiScopeRequest struct {
	Name                    string   `json:"name"`
	DisplayName             string   `json:"displayName,omitempty"`
	Description             string   `json:"description,omitempty"`
	Required                bool     `json:"required"`
	Emphasize               bool     `json:"emphasize"`
	ShowInDiscoveryDocument *bool    `json:"showInDiscoveryDocument,omitempty"`
	Enabled                 *bool    `json:"enabled,omitempty"`
	UserClaims              []string `json:"userClaims,omitempty"`
}

type ApiScopeResponse struct {
	ID                      int      `json:"id"`
	Name                    string   `json:"name"`
	DisplayName             string   `json:"displayName,omitempty"`
	Description             string   `json:"description,omitempty"`
	Required                bool     `json:"required"`
	Emphasize               bool     `json:"emphasize"`
	ShowInDiscoveryDocument bool     `json:"showInDiscoveryDocument"`
	Enabled                 bool     `json:"enabled"`
	UserClaims              []string `json:"userClaims"`
}

type PropertyDTO struct {
	ID         int    `json:"id,omitempty"`
	ApiScopeID int    `json:"apiScopeId,omitempty"`
	Key        string `json:"key"`
	Value      string `json:"value"`
}

type PropertiesResponse struct {
	ApiScopeID   int           `json:"apiScopeId"`
	ApiScopeName string        `json:"apiScopeName"`
	Data         []PropertyDTO `json:"data"`
	TotalCount   int           `json:"totalCount"`
	PageSize     int           `json:"pageSize"`
}

// PropertyConflictResponse is the candidate of a property conflict
type PropertyConflictResponse struct {
	PropertiesResponse
	Property PropertyDTO `json:"property"`
}

type IDResponse struct {
	ID int `json:"id"`
}

type AffectedResponse struct {
	Affected int `json:"affected"`
}

func toApiScope(req ApiScopeRequest) *apiscope.ApiScope {
	scope := apiscope.NewApiScope(req.Name)
	scope.DisplayName = req.DisplayName
	scope.Description = req.Description
	scope.Required = req.Required
	scope.Emphasize = req.Emphasize
	if req.ShowInDiscoveryDocument != nil {
		scope.ShowInDiscoveryDocument = *req.ShowInDiscoveryDocument
	}
	if req.Enabled != nil {
		scope.Enabled = *req.Enabled
	}
	scope.UserClaims = req.UserClaims
	return scope
}

func toApiScopeResponse(s apiscope.ApiScope) ApiScopeResponse {
	claims := s.UserClaims
	if claims == nil {
		claims = []string{}
	}
	return ApiScopeResponse{
		ID:                      s.ID,
		Name:                    s.Name,
		DisplayName:             s.DisplayName,
		Description:             s.Description,
		Required:                s.Required,
		Emphasize:               s.Emphasize,
		ShowInDiscoveryDocument: s.ShowInDiscoveryDocument,
		Enabled:                 s.Enabled,
		UserClaims:              claims,
	}
}

func toPropertyDTO(p apiscope.ApiScopeProperty) PropertyDTO {
	return PropertyDTO{ID: p.ID, ApiScopeID: p.ApiScopeID, Key: p.Key, Value: p.Value}
}

func toPropertiesResponse(view apiscope.PropertiesView) PropertiesResponse {
	resp := PropertiesResponse{
		ApiScopeID:   view.ApiScopeID,
		ApiScopeName: view.ApiScopeName,
		Data:         make([]PropertyDTO, 0, len(view.Properties)),
		TotalCount:   view.TotalCount,
		PageSize:     view.PageSize,
	}
	for _, p := range view.Properties {
		resp.Data = append(resp.Data, toPropertyDTO(p))
	}
	return resp
}
