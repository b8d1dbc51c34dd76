package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/identity-admin/pkg/common"
	"github.com/tendant/identity-admin/pkg/persistedgrant"
)

type SubjectResponse struct {
	SubjectID   string `json:"subjectId"`
	SubjectName string `json:"subjectName,omitempty"`
}

// GrantResponse carries the key in its query-string safe form
type GrantResponse struct {
	Key          string     `json:"key"`
	Type         string     `json:"type"`
	SubjectID    string     `json:"subjectId,omitempty"`
	SubjectName  string     `json:"subjectName,omitempty"`
	SessionID    string     `json:"sessionId,omitempty"`
	ClientID     string     `json:"clientId"`
	Description  string     `json:"description,omitempty"`
	CreationTime time.Time  `json:"creationTime"`
	Expiration   *time.Time `json:"expiration,omitempty"`
	ConsumedTime *time.Time `json:"consumedTime,omitempty"`
	Data         string     `json:"data"`
}

func toSubjectResponse(s persistedgrant.Subject) SubjectResponse {
	return SubjectResponse{SubjectID: s.SubjectID, SubjectName: s.SubjectName}
}

func toGrantResponse(g persistedgrant.PersistedGrant) GrantResponse {
	key := g.Key
	if key != "" {
		key = persistedgrant.QueryStringSafeHash(key)
	}
	return GrantResponse{
		Key:          key,
		Type:         g.Type,
		SubjectID:    g.SubjectID,
		SubjectName:  g.SubjectName,
		SessionID:    g.SessionID,
		ClientID:     g.ClientID,
		Description:  g.Description,
		CreationTime: g.CreationTime,
		Expiration:   g.Expiration,
		ConsumedTime: g.ConsumedTime,
		Data:         g.Data,
	}
}

type Handle struct {
	service *persistedgrant.PersistedGrantService
}

func NewHandle(service *persistedgrant.PersistedGrantService) *Handle {
	return &Handle{service: service}
}

// RegisterRoutes mounts /persistedgrants. Grant keys in paths use the safe alphabet.
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/persistedgrants", func(r chi.Router) {
		r.Get("/", h.Subjects)
		r.Get("/grant/{key}", h.Get)
		r.Delete("/grant/{key}", h.Delete)
		r.Get("/{subjectId}", h.BySubject)
		r.Delete("/{subjectId}", h.DeleteBySubject)
	})
}

func (h *Handle) Subjects(w http.ResponseWriter, r *http.Request) {
	search, page, pageSize := common.PageParams(r)
	list, err := h.service.GetPersistedGrantsByUsers(r.Context(), search, page, pageSize)
	if err != nil {
		common.RenderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toSubjectResponse))
}

func (h *Handle) BySubject(w http.ResponseWriter, r *http.Request) {
	_, page, pageSize := common.PageParams(r)
	list, err := h.service.GetPersistedGrantsByUser(r.Context(), chi.URLParam(r, "subjectId"), page, pageSize)
	if err != nil {
		common.RenderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toGrantResponse))
}

func (h *Handle) Get(w http.ResponseWriter, r *http.Request) {
	key := persistedgrant.QueryStringUnSafeHash(chi.URLParam(r, "key"))
	grant, err := h.service.GetPersistedGrant(r.Context(), key)
	if err != nil {
		common.RenderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toGrantResponse(*grant))
}

func (h *Handle) Delete(w http.ResponseWriter, r *http.Request) {
	key := persistedgrant.QueryStringUnSafeHash(chi.URLParam(r, "key"))
	if _, err := h.service.DeletePersistedGrant(r.Context(), key); err != nil {
		common.RenderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handle) DeleteBySubject(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.DeletePersistedGrants(r.Context(), chi.URLParam(r, "subjectId")); err != nil {
		common.RenderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
