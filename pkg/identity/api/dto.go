package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/tendant/identity-admin/pkg/identity"
)

type UserRequest struct {
	UserName             string     `json:"userName"`
	Email                string     `json:"email,omitempty"`
	EmailConfirmed       bool       `json:"emailConfirmed"`
	PhoneNumber          string     `json:"phoneNumber,omitempty"`
	PhoneNumberConfirmed bool       `json:"phoneNumberConfirmed"`
	LockoutEnabled       *bool      `json:"lockoutEnabled,omitempty"`
	LockoutEnd           *time.Time `json:"lockoutEnd,omitempty"`
	AccessFailedCount    int        `json:"accessFailedCount"`
	TwoFactorEnabled     bool       `json:"twoFactorEnabled"`
	// Password is only read on create
	Password string `json:"password,omitempty"`
}

type UserResponse struct {
	ID                   uuid.UUID  `json:"id"`
	UserName             string     `json:"userName"`
	Email                string     `json:"email,omitempty"`
	EmailConfirmed       bool       `json:"emailConfirmed"`
	PhoneNumber          string     `json:"phoneNumber,omitempty"`
	PhoneNumberConfirmed bool       `json:"phoneNumberConfirmed"`
	LockoutEnabled       bool       `json:"lockoutEnabled"`
	LockoutEnd           *time.Time `json:"lockoutEnd,omitempty"`
	AccessFailedCount    int        `json:"accessFailedCount"`
	TwoFactorEnabled     bool       `json:"twoFactorEnabled"`
}

type ChangePasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type RoleRequest struct {
	Name string `json:"name"`
}

type RoleResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type MembershipRequest struct {
	RoleID uuid.UUID `json:"roleId"`
}

type ClaimRequest struct {
	ClaimType  string `json:"claimType"`
	ClaimValue string `json:"claimValue"`
}

type ClaimResponse struct {
	ID         int    `json:"id"`
	ClaimType  string `json:"claimType"`
	ClaimValue string `json:"claimValue"`
}

type ProviderResponse struct {
	LoginProvider       string    `json:"loginProvider"`
	ProviderKey         string    `json:"providerKey"`
	ProviderDisplayName string    `json:"providerDisplayName,omitempty"`
	UserID              uuid.UUID `json:"userId"`
}

type UUIDResponse struct {
	ID uuid.UUID `json:"id"`
}

type IDResponse struct {
	ID int `json:"id"`
}

type AffectedResponse struct {
	Affected int `json:"affected"`
}

func toUser(req UserRequest) *identity.User {
	user := &identity.User{
		UserName:             req.UserName,
		Email:                req.Email,
		EmailConfirmed:       req.EmailConfirmed,
		PhoneNumber:          req.PhoneNumber,
		PhoneNumberConfirmed: req.PhoneNumberConfirmed,
		LockoutEnabled:       true,
		LockoutEnd:           req.LockoutEnd,
		AccessFailedCount:    req.AccessFailedCount,
		TwoFactorEnabled:     req.TwoFactorEnabled,
	}
	if req.LockoutEnabled != nil {
		user.LockoutEnabled = *req.LockoutEnabled
	}
	return user
}

func toUserResponse(u identity.User) UserResponse {
	return UserResponse{
		ID:                   u.ID,
		UserName:             u.UserName,
		Email:                u.Email,
		EmailConfirmed:       u.EmailConfirmed,
		PhoneNumber:          u.PhoneNumber,
		PhoneNumberConfirmed: u.PhoneNumberConfirmed,
		LockoutEnabled:       u.LockoutEnabled,
		LockoutEnd:           u.LockoutEnd,
		AccessFailedCount:    u.AccessFailedCount,
		TwoFactorEnabled:     u.TwoFactorEnabled,
	}
}

func toRoleResponse(r identity.Role) RoleResponse {
	return RoleResponse{ID: r.ID, Name: r.Name}
}

func toUserClaimResponse(c identity.UserClaim) ClaimResponse {
	return ClaimResponse{ID: c.ID, ClaimType: c.Type, ClaimValue: c.Value}
}

func toRoleClaimResponse(c identity.RoleClaim) ClaimResponse {
	return ClaimResponse{ID: c.ID, ClaimType: c.Type, ClaimValue: c.Value}
}

func toProviderResponse(l identity.UserLogin) ProviderResponse {
	return ProviderResponse{
		LoginProvider:       l.LoginProvider,
		ProviderKey:         l.ProviderKey,
		ProviderDisplayName: l.ProviderDisplayName,
		UserID:              l.UserID,
	}
}
