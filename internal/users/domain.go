// Package users manages principal accounts.
package users

import "github.com/odyssey-erp/commerce-admin/internal/rbac"

// ListContext labels user listings.
const ListContext = "User"

// UpdateInput carries optional replacements; nil fields are left unchanged.
type UpdateInput struct {
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=1"`
	Role     *int64  `json:"role" validate:"omitempty,min=1"`
}

// RoleRef is the compact role shape embedded in user views.
type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FlatView is the flattened listing shape.
type FlatView struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// View is the full listing and update shape. Password hashes never leave
// the service.
type View struct {
	ID    int64   `json:"id"`
	Email string  `json:"email"`
	Role  RoleRef `json:"role"`
}

func toView(p rbac.Principal) View {
	return View{ID: p.ID, Email: p.Email, Role: RoleRef{ID: p.Role.ID, Name: p.Role.Name}}
}
