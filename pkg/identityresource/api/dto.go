package api

import (
	"time"

	"github.com/tendant/identity-admin/pkg/identityresource"
)

type IdentityResourceRequest struct {
	Name                    string   `json:"name"`
	DisplayName             string   `json:"displayName,omitempty"`
	Description             string   `json:"description,omitempty"`
	Enabled                 *bool    `json:"enabled,omitempty"`
	Required                bool     `json:"required"`
	Emphasize               bool     `json:"emphasize"`
	ShowInDiscoveryDocument *bool    `json:"showInDiscoveryDocument,omitempty"`
	UserClaims              []string `json:"userClaims,omitempty"`
}

type IdentityResourceResponse struct {
	ID                      int        `json:"id"`
	Name                    string     `json:"name"`
	DisplayName             string     `json:"displayName,omitempty"`
	Description             string     `json:"description,omitempty"`
	Enabled                 bool       `json:"enabled"`
	Required                bool       `json:"required"`
	Emphasize               bool       `json:"emphasize"`
	ShowInDiscoveryDocument bool       `json:"showInDiscoveryDocument"`
	UserClaims              []string   `json:"userClaims"`
	Created                 time.Time  `json:"created"`
	Updated                 *time.Time `json:"updated,omitempty"`
}

type PropertyDTO struct {
	ID                 int    `json:"id,omitempty"`
	IdentityResourceID int    `json:"identityResourceId,omitempty"`
	Key                string `json:"key"`
	Value              string `json:"value"`
}

type PropertiesResponse struct {
	IdentityResourceID   int           `json:"identityResourceId"`
	IdentityResourceName string        `json:"identityResourceName"`
	Data                 []PropertyDTO `json:"data"`
	TotalCount           int           `json:"totalCount"`
	PageSize             int           `json:"pageSize"`
}

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

func toIdentityResource(req IdentityResourceRequest) *identityresource.IdentityResource {
	res := identityresource.NewIdentityResource(req.Name)
	res.DisplayName = req.DisplayName
	res.Description = req.Description
	if req.Enabled != nil {
		res.Enabled = *req.Enabled
	}
	res.Required = req.Required
	res.Emphasize = req.Emphasize
	if req.ShowInDiscoveryDocument != nil {
		res.ShowInDiscoveryDocument = *req.ShowInDiscoveryDocument
	}
	res.UserClaims = req.UserClaims
	return res
}

func toIdentityResourceResponse(res identityresource.IdentityResource) IdentityResourceResponse {
	claims := res.UserClaims
	if claims == nil {
		claims = []string{}
	}
	return IdentityResourceResponse{
		ID:                      res.ID,
		Name:                    res.Name,
		DisplayName:             res.DisplayName,
		Description:             res.Description,
		Enabled:                 res.Enabled,
		Required:                res.Required,
		Emphasize:               res.Emphasize,
		ShowInDiscoveryDocument: res.ShowInDiscoveryDocument,
		UserClaims:              claims,
		Created:                 res.Created,
		Updated:                 res.Updated,
	}
}

func toPropertyDTO(p identityresource.IdentityResourceProperty) PropertyDTO {
	return PropertyDTO{ID: p.ID, IdentityResourceID: p.IdentityResourceID, Key: p.Key, Value: p.Value}
}

func toPropertiesResponse(view identityresource.PropertiesView) PropertiesResponse {
	resp := PropertiesResponse{
		IdentityResourceID:   view.IdentityResourceID,
		IdentityResourceName: view.IdentityResourceName,
		Data:                 make([]PropertyDTO, 0, len(view.Properties)),
		TotalCount:           view.TotalCount,
		PageSize:             view.PageSize,
	}
	for _, p := range view.Properties {
		resp.Data = append(resp.Data, toPropertyDTO(p))
	}
	return resp
}
