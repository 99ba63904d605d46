package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/odyssey-erp/commerce-admin/internal/listing"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

const (
	// DefaultRange is used when a window has no explicit start.
	DefaultRange = 7 * 24 * time.Hour
	// MaxRange caps the width of a window.
	MaxRange = 90 * 24 * time.Hour
)

// sortLayout keeps lexical and chronological order equal.
const sortLayout = "2006-01-02T15:04:05.000000000Z"

// Service serves the audit timeline.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Source describes how audit entries are listed.
func Source() listing.Source[Entry] {
	return listing.Source[Entry]{
		Context:  ListContext,
		MaxLimit: 100,
		SortKey:  func(e Entry) string { return e.At.UTC().Format(sortLayout) },
		Filters: map[string]func(Entry) string{
			"action": func(e Entry) string { return e.Action },
			"entity": func(e Entry) string { return e.Entity },
			"actor":  func(e Entry) string { return e.ActorEmail },
		},
		Flat: func(e Entry) any { return FlatView{ID: e.ID, Action: e.Action} },
		Full: func(e Entry) any { return toView(e) },
	}
}

// Validate rejects inverted or oversized windows.
func (w Window) Validate() error {
	switch {
	case !w.From.Before(w.To):
		return &shared.ValidationError{Fields: map[string]string{"range": "from must be before to"}}
	case w.To.Sub(w.From) > MaxRange:
		return &shared.ValidationError{Fields: map[string]string{"range": "window exceeds 90 days"}}
	}
	return nil
}

// Timeline runs a listing query over the entries inside w.
func (s *Service) Timeline(ctx context.Context, w Window, q listing.Query) (listing.Envelope, error) {
	entries, err := s.entries(ctx, w)
	if err != nil {
		return listing.Envelope{}, err
	}
	return listing.Run(entries, q, Source())
}

// Export renders every entry inside w as CSV.
func (s *Service) Export(ctx context.Context, w Window) ([]byte, error) {
	entries, err := s.entries(ctx, w)
	if err != nil {
		return nil, err
	}
	return WriteCSV(entries)
}

func (s *Service) entries(ctx context.Context, w Window) ([]Entry, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Timeline(ctx, w)
}

// WriteCSV encodes entries with a header row.
func WriteCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write([]string{"id", "at", "actor_id", "actor", "action", "entity", "entity_id", "meta"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		meta := ""
		if len(e.Meta) > 0 {
			raw, err := json.Marshal(e.Meta)
			if err != nil {
				return nil, err
			}
			meta = string(raw)
		}
		record := []string{
			strconv.FormatInt(e.ID, 10),
			e.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(e.ActorID, 10),
			e.ActorEmail,
			e.Action,
			e.Entity,
			e.EntityID,
			meta,
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}
