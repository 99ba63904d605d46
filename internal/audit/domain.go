package audit

import "time"

// ListContext labels audit listing envelopes.
const ListContext = "Audit"

// Entry is one recorded admin mutation.
type Entry struct {
	ID         int64
	At         time.Time
	ActorID    int64
	ActorEmail string
	Action     string
	Entity     string
	EntityID   string
	Meta       map[string]any
}

// Window bounds a timeline query. From is inclusive, To exclusive.
type Window struct {
	From time.Time
	To   time.Time
}

// FlatView is the flattened listing projection.
type FlatView struct {
	ID     int64  `json:"id"`
	Action string `json:"action"`
}

// View is the full listing projection.
type View struct {
	ID       int64          `json:"id"`
	At       time.Time      `json:"at"`
	ActorID  int64          `json:"actorId"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entityId"`
	Meta     map[string]any `json:"meta,omitempty"`
}

func toView(e Entry) View {
	return View{
		ID:       e.ID,
		At:       e.At,
		ActorID:  e.ActorID,
		Actor:    e.ActorEmail,
		Action:   e.Action,
		Entity:   e.Entity,
		EntityID: e.EntityID,
		Meta:     e.Meta,
	}
}
