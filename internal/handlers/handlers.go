package handlers

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lerndmina/ContributionsLeaderboard/internal/analytics"
	"github.com/lerndmina/ContributionsLeaderboard/internal/leaderboard"
	"github.com/lerndmina/ContributionsLeaderboard/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

const visitorCookie = "cb_vid"

// Builder produces one page of the leaderboard.
type Builder interface {
	Build(req leaderboard.Request) (leaderboard.Result, error)
}

// Handler holds all dependencies and parsed templates.
type Handler struct {
	board   Builder
	ph      *analytics.Client
	tmpls   map[string]*template.Template
	funcMap template.FuncMap
}

func New(board Builder, ph *analytics.Client) *Handler {
	h := &Handler{board: board, ph: ph}
	h.funcMap = template.FuncMap{
		"formatValue": formatValue,
		"formatCount": formatCount,
		"rankClass":   rankClass,
		"add":         func(a, b int) int { return a + b },
	}
	h.loadTemplates()
	return h
}

func (h *Handler) loadTemplates() {
	h.tmpls = make(map[string]*template.Template)

	pages := []string{"leaderboard_page"}
	for _, page := range pages {
		tmpl := template.Must(
			template.New("").Funcs(h.funcMap).ParseFS(templateFS,
				"templates/layout.html",
				"templates/"+page+".html",
			),
		)
		h.tmpls[page] = tmpl
	}
}

// render executes the full layout template for a page.
func (h *Handler) render(w http.ResponseWriter, name string, data interface{}) {
	tmpl, ok := h.tmpls[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		logger.Error("template %q error: %v", name, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("json encode error: %v", err)
	}
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TrackPageViews assigns each browser an anonymous visitor id and records a
// view event for every leaderboard request.
func (h *Handler) TrackPageViews(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path == "/healthz" || !h.ph.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		id := ""
		if c, err := r.Cookie(visitorCookie); err == nil && c.Value != "" {
			id = c.Value
		} else {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     visitorCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   365 * 24 * 3600,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		params := make(map[string]interface{})
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
		h.ph.LeaderboardViewed(id, r.URL.Path, params)
		next.ServeHTTP(w, r)
	})
}

// ── Template helpers ───────────────────────────────────────────────────────────

// formatValue renders a leaderboard value: one decimal for scores, a grouped
// integer for counts.
func formatValue(v float64, scored bool) string {
	if scored {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return formatCount(int64(v))
}

func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func rankClass(rank int) string {
	switch rank {
	case 1:
		return "rank-gold"
	case 2:
		return "rank-silver"
	case 3:
		return "rank-bronze"
	default:
		return "rank-other"
	}
}
