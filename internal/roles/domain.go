// Package roles manages roles and resolves them for other modules.
package roles

import "github.com/odyssey-erp/commerce-admin/internal/rbac"

// ListContext labels role listings.
const ListContext = "Roles"

// CreateInput is the payload for creating a role.
type CreateInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=255"`
	Permission  []int64 `json:"permission" validate:"required,min=1,dive,gt=0"`
}

// UpdateInput carries optional replacements. A non-nil Permission replaces
// the whole permission set and must not be empty.
type UpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
	Permission  []int64 `json:"permission" validate:"omitempty,dive,gt=0"`
}

// PermissionRef is the compact permission shape embedded in role views.
type PermissionRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FlatView is the flattened listing shape.
type FlatView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// View is the full role shape used by listing, detail and update.
type View struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Permission  []PermissionRef `json:"permission"`
}

func toView(r rbac.Role) View {
	refs := make([]PermissionRef, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		refs = append(refs, PermissionRef{ID: p.ID, Name: p.Name})
	}
	return View{ID: r.ID, Name: r.Name, Description: r.Description, Permission: refs}
}
