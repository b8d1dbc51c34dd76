package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/identity-admin/pkg/common"
	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/identity"
)

type Handle struct {
	service *identity.IdentityService
}

func NewHandle(service *identity.IdentityService) *Handle {
	return &Handle{service: service}
}

func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetUser)
			r.Put("/", h.UpdateUser)
			r.Delete("/", h.DeleteUser)
			r.Post("/password", h.ChangePassword)

			r.Get("/roles", h.ListUserRoles)
			r.Post("/roles", h.AddUserToRole)
			r.Delete("/roles/{roleId}", h.RemoveUserFromRole)

			r.Get("/claims", h.ListUserClaims)
			r.Post("/claims", h.AddUserClaim)
			r.Get("/claims/{claimId}", h.GetUserClaim)
			r.Delete("/claims/{claimId}", h.DeleteUserClaim)

			r.Get("/providers", h.ListProviders)
			r.Delete("/providers/{provider}/{providerKey}", h.DeleteProvider)
		})
	})

	r.Route("/roles", func(r chi.Router) {
		r.Get("/", h.ListRoles)
		r.Post("/", h.CreateRole)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetRole)
			r.Put("/", h.UpdateRole)
			r.Delete("/", h.DeleteRole)
			r.Get("/users", h.ListRoleUsers)

			r.Get("/claims", h.ListRoleClaims)
			r.Post("/claims", h.AddRoleClaim)
			r.Get("/claims/{claimId}", h.GetRoleClaim)
			r.Delete("/claims/{claimId}", h.DeleteRoleClaim)
		})
	})
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	if c, ok := apperrors.AsConflict[identity.User](err); ok {
		common.RenderConflict(w, r, c.Code, c.Message, toUserResponse(c.Candidate))
		return
	}
	if c, ok := apperrors.AsConflict[identity.Role](err); ok {
		common.RenderConflict(w, r, c.Code, c.Message, toRoleResponse(c.Candidate))
		return
	}
	common.RenderError(w, r, err)
}

func (h *Handle) ListUsers(w http.ResponseWriter, r *http.Request) {
	search, page, pageSize := common.PageParams(r)
	list, err := h.service.GetUsers(r.Context(), search, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toUserResponse))
}

func (h *Handle) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toUserResponse(*user))
}

func (h *Handle) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	id, err := h.service.CreateUser(r.Context(), toUser(req), req.Password)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, UUIDResponse{ID: id})
}

func (h *Handle) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req UserRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	user := toUser(req)
	user.ID = id
	affected, err := h.service.UpdateUser(r.Context(), user)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, AffectedResponse{Affected: affected})
}

func (h *Handle) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.service.DeleteUser(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeUserDoesNotExist, "User does not exist")
}

func (h *Handle) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req ChangePasswordRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		renderError(w, r, apperrors.ValidationFailed(map[string]interface{}{
			"confirmPassword": "the password and confirmation password do not match",
		}))
		return
	}
	affected, err := h.service.UserChangePassword(r.Context(), id, req.Password)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, AffectedResponse{Affected: affected})
}

func (h *Handle) ListUserRoles(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	_, page, pageSize := common.PageParams(r)
	list, err := h.service.GetUserRoles(r.Context(), id, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toRoleResponse))
}

func (h *Handle) AddUserToRole(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req MembershipRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.service.AddUserToRole(r.Context(), id, req.RoleID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, AffectedResponse{Affected: affected})
}

func (h *Handle) RemoveUserFromRole(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	roleID, err := common.UUIDURLParam(r, "roleId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.service.RemoveUserFromRole(r.Context(), id, roleID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeRoleDoesNotExist, "User is not in role")
}

func (h *Handle) ListUserClaims(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	_, page, pageSize := common.PageParams(r)
	list, err := h.service.GetUserClaims(r.Context(), id, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toUserClaimResponse))
}

func (h *Handle) AddUserClaim(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req ClaimRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	claimID, err := h.service.CreateUserClaim(r.Context(), &identity.UserClaim{UserID: id, Type: req.ClaimType, Value: req.ClaimValue})
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, IDResponse{ID: claimID})
}

func (h *Handle) GetUserClaim(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	claimID, err := common.IntURLParam(r, "claimId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	claim, err := h.service.GetUserClaim(r.Context(), id, claimID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toUserClaimResponse(*claim))
}

func (h *Handle) DeleteUserClaim(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	claimID, err := common.IntURLParam(r, "claimId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.service.DeleteUserClaim(r.Context(), id, claimID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeUserClaimDoesNotExist, "User claim does not exist")
}

func (h *Handle) ListProviders(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	logins, err := h.service.GetUserProviders(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	out := make([]ProviderResponse, 0, len(logins))
	for _, l := range logins {
		out = append(out, toProviderResponse(l))
	}
	common.RenderJSON(w, r, http.StatusOK, out)
}

func (h *Handle) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.service.DeleteUserProvider(r.Context(), id, chi.URLParam(r, "provider"), chi.URLParam(r, "providerKey"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeUserProviderDoesNotExist, "User provider does not exist")
}

func (h *Handle) ListRoles(w http.ResponseWriter, r *http.Request) {
	search, page, pageSize := common.PageParams(r)
	list, err := h.service.GetRoles(r.Context(), search, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toRoleResponse))
}

func (h *Handle) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toRoleResponse(*role))
}

func (h *Handle) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	id, err := h.service.CreateRole(r.Context(), &identity.Role{Name: req.Name})
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, UUIDResponse{ID: id})
}

func (h *Handle) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req RoleRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.service.UpdateRole(r.Context(), &identity.Role{ID: id, Name: req.Name})
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, AffectedResponse{Affected: affected})
}

func (h *Handle) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.service.DeleteRole(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeRoleDoesNotExist, "Role does not exist")
}

func (h *Handle) ListRoleUsers(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	search, page, pageSize := common.PageParams(r)
	list, err := h.service.GetRoleUsers(r.Context(), id, search, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toUserResponse))
}

func (h *Handle) ListRoleClaims(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	_, page, pageSize := common.PageParams(r)
	list, err := h.service.GetRoleClaims(r.Context(), id, page, pageSize)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, common.ToPagedResponse(list, toRoleClaimResponse))
}

func (h *Handle) AddRoleClaim(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	var req ClaimRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	claimID, err := h.service.CreateRoleClaim(r.Context(), &identity.RoleClaim{RoleID: id, Type: req.ClaimType, Value: req.ClaimValue})
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusCreated, IDResponse{ID: claimID})
}

func (h *Handle) GetRoleClaim(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	claimID, err := common.IntURLParam(r, "claimId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	claim, err := h.service.GetRoleClaim(r.Context(), id, claimID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderJSON(w, r, http.StatusOK, toRoleClaimResponse(*claim))
}

func (h *Handle) DeleteRoleClaim(w http.ResponseWriter, r *http.Request) {
	id, err := common.UUIDURLParam(r, "id")
	if err != nil {
		renderError(w, r, err)
		return
	}
	claimID, err := common.IntURLParam(r, "claimId")
	if err != nil {
		renderError(w, r, err)
		return
	}
	affected, err := h.service.DeleteRoleClaim(r.Context(), id, claimID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	common.RenderDeleted(w, r, affected, apperrors.ErrCodeRoleClaimDoesNotExist, "Role claim does not exist")
}
