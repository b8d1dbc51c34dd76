package api

import (
	"time"

	"github.com/tendant/identity-admin/pkg/apiresource"
	"github.com/tendant/identity-admin/pkg/secrets"
)

type ApiResourceRequest struct {
	Name                                string   `json:"name"`
	DisplayName                         string   `json:"displayName,omitempty"`
	Description                         string   `json:"description,omitempty"`
	Enabled                             *bool    `json:"enabled,omitempty"`
	ShowInDiscoveryDocument             *bool    `json:"showInDiscoveryDocument,omitempty"`
	RequireResourceIndicator            bool     `json:"requireResourceIndicator"`
	AllowedAccessTokenSigningAlgorithms []string `json:"allowedAccessTokenSigningAlgorithms,omitempty"`
	UserClaims                          []string `json:"userClaims,omitempty"`
	Scopes                              []string `json:"scopes,omitempty"`
}

type ApiResourceResponse struct {
	ID                                  int        `json:"id"`
	Name                                string     `json:"name"`
	DisplayName                         string     `json:"displayName,omitempty"`
	Description                         string     `json:"description,omitempty"`
	Enabled                             bool       `json:"enabled"`
	ShowInDiscoveryDocument             bool       `json:"showInDiscoveryDocument"`
	RequireResourceIndicator            bool       `json:"requireResourceIndicator"`
	AllowedAccessTokenSigningAlgorithms []string   `json:"allowedAccessTokenSigningAlgorithms"`
	UserClaims                          []string   `json:"userClaims"`
	Scopes                              []string   `json:"scopes"`
	Created                             time.Time  `json:"created"`
	Updated                             *time.Time `json:"updated,omitempty"`
}

type SecretRequest struct {
	Description string     `json:"description,omitempty"`
	Value       string     `json:"value"`
	Type        string     `json:"type,omitempty"`
	HashType    string     `json:"hashType,omitempty"`
	Expiration  *time.Time `json:"expiration,omitempty"`
}

// SecretResponse never carries the secret value
type SecretResponse struct {
	ID            int        `json:"id"`
	ApiResourceID int        `json:"apiResourceId"`
	Description   string     `json:"description,omitempty"`
	Type          string     `json:"type"`
	Expiration    *time.Time `json:"expiration,omitempty"`
	Created       time.Time  `json:"created"`
}

type PropertyDTO struct {
	ID            int    `json:"id,omitempty"`
	ApiResourceID int    `json:"apiResourceId,omitempty"`
	Key           string `json:"key"`
	Value         string `json:"value"`
}

// ChildListResponse is a page of one resource's secrets or properties
type ChildListResponse[T any] struct {
	ApiResourceID   int    `json:"apiResourceId"`
	ApiResourceName string `json:"apiResourceName"`
	Data            []T    `json:"data"`
	TotalCount      int    `json:"totalCount"`
	PageSize        int    `json:"pageSize"`
}

// PropertyConflictResponse is the candidate of a property conflict
type PropertyConflictResponse struct {
	ChildListResponse[PropertyDTO]
	Property PropertyDTO `json:"property"`
}

type IDResponse struct {
	ID int `json:"id"`
}

type AffectedResponse struct {
	Affected int `json:"affected"`
}

func toApiResource(req ApiResourceRequest) *apiresource.ApiResource {
	res := apiresource.NewApiResource(req.Name)
	res.DisplayName = req.DisplayName
	res.Description = req.Description
	if req.Enabled != nil {
		res.Enabled = *req.Enabled
	}
	if req.ShowInDiscoveryDocument != nil {
		res.ShowInDiscoveryDocument = *req.ShowInDiscoveryDocument
	}
	res.RequireResourceIndicator = req.RequireResourceIndicator
	res.AllowedAccessTokenSigningAlgorithms = req.AllowedAccessTokenSigningAlgorithms
	res.UserClaims = req.UserClaims
	res.Scopes = req.Scopes
	return res
}

func toApiResourceResponse(res apiresource.ApiResource) ApiResourceResponse {
	return ApiResourceResponse{
		ID:                                  res.ID,
		Name:                                res.Name,
		DisplayName:                         res.DisplayName,
		Description:                         res.Description,
		Enabled:                             res.Enabled,
		ShowInDiscoveryDocument:             res.ShowInDiscoveryDocument,
		RequireResourceIndicator:            res.RequireResourceIndicator,
		AllowedAccessTokenSigningAlgorithms: nonNil(res.AllowedAccessTokenSigningAlgorithms),
		UserClaims:                          nonNil(res.UserClaims),
		Scopes:                              nonNil(res.Scopes),
		Created:                             res.Created,
		Updated:                             res.Updated,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func toSecret(req SecretRequest, hashType secrets.HashType) *apiresource.ApiSecret {
	return &apiresource.ApiSecret{
		Description: req.Description,
		Value:       req.Value,
		Type:        req.Type,
		HashType:    hashType,
		Expiration:  req.Expiration,
	}
}

func toSecretResponse(s apiresource.ApiSecret) SecretResponse {
	return SecretResponse{
		ID:            s.ID,
		ApiResourceID: s.ApiResourceID,
		Description:   s.Description,
		Type:          s.Type,
		Expiration:    s.Expiration,
		Created:       s.Created,
	}
}

func toPropertyDTO(p apiresource.ApiResourceProperty) PropertyDTO {
	return PropertyDTO{ID: p.ID, ApiResourceID: p.ApiResourceID, Key: p.Key, Value: p.Value}
}

func toPropertiesResponse(view apiresource.PropertiesView) ChildListResponse[PropertyDTO] {
	resp := ChildListResponse[PropertyDTO]{
		ApiResourceID:   view.ApiResourceID,
		ApiResourceName: view.ApiResourceName,
		Data:            make([]PropertyDTO, 0, len(view.Properties)),
		TotalCount:      view.TotalCount,
		PageSize:        view.PageSize,
	}
	for _, p := range view.Properties {
		resp.Data = append(resp.Data, toPropertyDTO(p))
	}
	return resp
}
