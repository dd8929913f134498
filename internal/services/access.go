package services

import (
	"github.com/docspace/backend/internal/models"
	"github.com/google/uuid"
)

// PrincipalKind is the closed set of identities a request can act as.
type PrincipalKind string

const (
	PrincipalAnonymous  PrincipalKind = "anonymous"
	PrincipalGuest      PrincipalKind = "guest"
	PrincipalRegistered PrincipalKind = "registered"
	PrincipalAdmin      PrincipalKind = "admin"
)

// Principal is the resolved caller identity. Authorization decisions are pure
// functions over the principal and the resource, never scattered role checks.
type Principal struct {
	Kind   PrincipalKind
	UserID uuid.UUID
}

func AnonymousPrincipal() Principal {
	return Principal{Kind: PrincipalAnonymous}
}

func PrincipalForUser(user *models.User) Principal {
	if user == nil {
		return AnonymousPrincipal()
	}
	switch user.Role {
	case models.UserRoleAdmin:
		return Principal{Kind: PrincipalAdmin, UserID: user.ID}
	case models.UserRoleGuest:
		return Principal{Kind: PrincipalGuest, UserID: user.ID}
	default:
		return Principal{Kind: PrincipalRegistered, UserID: user.ID}
	}
}

func (p Principal) Authenticated() bool {
	return p.Kind != PrincipalAnonymous
}

// CanManageFile reports whether the principal may download or delete a file:
// its owner, or an admin.
func CanManageFile(p Principal, file *models.File) bool {
	if !p.Authenticated() || file == nil {
		return false
	}
	return file.OwnerID == p.UserID || p.Kind == PrincipalAdmin
}

// CanShareFile reports whether the principal may issue share links for a
// file. Sharing is strictly an owner capability.
func CanShareFile(p Principal, file *models.File) bool {
	if !p.Authenticated() || file == nil {
		return false
	}
	return file.OwnerID == p.UserID
}

// CanManageFolder reports whether the principal may read or delete a folder.
// Folders are strictly owner-scoped.
func CanManageFolder(p Principal, folder *models.Folder) bool {
	if !p.Authenticated() || folder == nil {
		return false
	}
	return folder.OwnerID == p.UserID
}

func CanAdministrate(p Principal) bool {
	return p.Kind == PrincipalAdmin
}
