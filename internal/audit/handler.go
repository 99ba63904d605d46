package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/commerce-admin/internal/listing"
	"github.com/odyssey-erp/commerce-admin/internal/platform/httpx"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
)

const (
	exportLimit  = 10
	exportWindow = time.Minute
	dateLayout   = "2006-01-02"
)

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

// MountRoutes registers the timeline and its CSV export. Exports are rate
// limited per principal.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(exportLimit, exportWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit exceeded")
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermReadAll))
		r.Get("/", h.timeline)
		r.With(limiter).Get("/export.csv", h.export)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if id := rbac.PrincipalID(r.Context()); id != 0 {
		return "principal:" + strconv.FormatInt(id, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	window, err := h.parseWindow(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := listing.ParseQuery(r.URL.Query(), "action", "entity", "actor")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	env, err := h.service.Timeline(r.Context(), window, q)
	if err != nil {
		h.fail(w, "audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, []listing.Envelope{env})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	window, err := h.parseWindow(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	body, err := h.service.Export(r.Context(), window)
	if err != nil {
		h.fail(w, "audit export", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// parseWindow reads from/to as dates. to defaults to today and is inclusive;
// from defaults to DefaultRange before to.
func (h *Handler) parseWindow(r *http.Request) (Window, error) {
	today := h.now().UTC().Truncate(24 * time.Hour)
	to := today
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return Window{}, &shared.ValidationError{Fields: map[string]string{"to": "must be a date (YYYY-MM-DD)"}}
		}
		to = parsed
	}
	from := to.Add(-DefaultRange)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return Window{}, &shared.ValidationError{Fields: map[string]string{"from": "must be a date (YYYY-MM-DD)"}}
		}
		from = parsed
	}
	return Window{From: from, To: to.Add(24 * time.Hour)}, nil
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !shared.IsDomainError(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
