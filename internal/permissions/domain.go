// Package permissions manages the registry of named capabilities.
package permissions

import "github.com/odyssey-erp/commerce-admin/internal/rbac"

// ListContext labels permission listings.
const ListContext = "Permission"

// CreateInput is the payload for creating a permission.
type CreateInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

// UpdateInput carries optional replacements; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

// FlatView is the flattened listing shape.
type FlatView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// View is the full listing and update shape.
type View struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toView(p rbac.Permission) View {
	return View{ID: p.ID, Name: p.Name, Description: p.Description}
}
