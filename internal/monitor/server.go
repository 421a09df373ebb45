package monitor

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ObiAU/questradar/internal/lifecycle"
	"github.com/ObiAU/questradar/internal/models"
)

// Handler serves the dashboard, the raw snapshot and the operational
// endpoints.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", m.healthHandler)
	mux.HandleFunc("/stats", m.statsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/raw", m.rawHandler)
	mux.HandleFunc("/raw", m.rawHandler)
	mux.HandleFunc("/", m.dashboardHandler)
	return mux
}

// startHTTPServer binds synchronously so a taken port fails startup; serving
// continues in the background.
func (m *Monitor) startHTTPServer(port int) error {
	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	m.mu.Lock()
	m.server = srv
	m.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

func (m *Monitor) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": m.now().UTC().Format(time.RFC3339),
	})
}

func (m *Monitor) statsHandler(w http.ResponseWriter, r *http.Request) {
	snap := m.state.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"dedup_stats": m.dedup.Stats(),
		"cycles":      m.Cycles(),
		"cycle_id":    snap.CycleID,
		"last_loop":   snap.LastLoop,
		"projects":    len(snap.Projects),
		"running":     m.isRunning(),
	})
}

func (m *Monitor) rawHandler(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, m.state.Current())
}

func (m *Monitor) authorized(r *http.Request) bool {
	want := m.Config().WebUIPassword
	got := r.URL.Query().Get("pwd")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

type dashboardCard struct {
	Name     string
	Alias    string
	Category models.Category
	Title    string
	Label    string
	Class    string
	Start    string
	End      string
	URL      string
	Has      bool
}

type dashboardPage struct {
	Password string
	Query    string
	Category string
	LastLoop string
	Zone     string
	Cards    []dashboardCard
}

func (m *Monitor) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !m.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cfg := m.Config()
	loc := cfg.DisplayLocation()
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	cat := strings.ToLower(r.URL.Query().Get("cat"))
	if cat != string(models.CategoryCustom) && cat != string(models.CategoryTrending) {
		cat = "all"
	}

	snap := m.state.Current()
	page := dashboardPage{
		Password: r.URL.Query().Get("pwd"),
		Query:    q,
		Category: cat,
		LastLoop: "waiting for the first polling cycle",
		Zone:     loc.String(),
	}
	if !snap.LastLoop.IsZero() {
		page.LastLoop = snap.LastLoop.In(loc).Format(lifecycle.DisplayLayout)
	}

	for _, p := range m.Ranker().Sort(filterProjects(snap.Projects, q, cat)) {
		card := dashboardCard{
			Name:     p.DisplayName(),
			Alias:    p.Alias,
			Category: p.Category,
			Label:    p.Status.Label(),
			Class:    p.Status.CSSClass(),
			URL:      p.URL,
			Has:      p.HasCampaign(),
		}
		if card.Has {
			card.Title = p.Latest.Name()
			card.Start = lifecycle.Format(p.Latest.StartTime(), loc)
			card.End = lifecycle.Format(p.Latest.EndTime(), loc)
		}
		page.Cards = append(page.Cards, card)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, page); err != nil {
		m.logger.Error("Dashboard render failed", zap.Error(err))
	}
}

// filterProjects applies the name/alias search and the category filter.
func filterProjects(projects []models.ProjectState, q, cat string) []models.ProjectState {
	out := make([]models.ProjectState, 0, len(projects))
	for _, p := range projects {
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Alias), q) {
			continue
		}
		if cat != "all" && string(p.Category) != cat {
			continue
		}
		out = append(out, p)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Quest Radar</title>
<style>
body{font-family:-apple-system,Segoe UI,sans-serif;background:#0f172a;color:#e5e7eb;margin:0;padding:24px}
.bar{display:flex;gap:12px;align-items:center;flex-wrap:wrap;margin-bottom:16px}
.filter-tag{color:#9ca3af;text-decoration:none;padding:4px 10px;border-radius:999px;border:1px solid #334155}
.filter-tag.active{color:#fff;background:#2563eb;border-color:#2563eb}
.grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(300px,1fr));gap:14px}
.card{background:#111827;border:1px solid #1f2937;border-radius:12px;padding:14px}
.card-header{display:flex;justify-content:space-between;align-items:flex-start}
.card-title{font-weight:600}
.card-sub{color:#9ca3af;font-size:12px}
.card-body{font-size:13px;margin-top:10px;line-height:1.6}
.pill{font-size:12px;padding:2px 8px;border-radius:999px;white-space:nowrap}
.pill-running{background:#064e3b;color:#6ee7b7}
.pill-upcoming{background:#1e3a8a;color:#93c5fd}
.pill-ended{background:#450a0a;color:#fca5a5}
.pill-unknown,.pill-empty{background:#1f2937;color:#9ca3af}
a{color:#60a5fa}
</style>
</head>
<body>
<h2>Quest Radar</h2>
<div class="bar">
  <form method="get" action="/">
    <input type="hidden" name="pwd" value="{{.Password}}">
    <input type="hidden" name="cat" value="{{.Category}}">
    <input type="text" name="q" value="{{.Query}}" placeholder="Search name or alias">
  </form>
  <a href="/?pwd={{.Password}}&cat=all&q={{.Query}}" class="filter-tag{{if eq .Category "all"}} active{{end}}">All</a>
  <a href="/?pwd={{.Password}}&cat=custom&q={{.Query}}" class="filter-tag{{if eq .Category "custom"}} active{{end}}">Custom</a>
  <a href="/?pwd={{.Password}}&cat=trending&q={{.Query}}" class="filter-tag{{if eq .Category "trending"}} active{{end}}">Trending</a>
  <span class="card-sub">Last loop: {{.LastLoop}} ({{.Zone}})</span>
</div>
<div class="grid">
{{range .Cards}}
  <div class="card">
    <div class="card-header">
      <div>
        <div class="card-title">{{.Name}}</div>
        <div class="card-sub">@{{.Alias}} · {{.Category}}</div>
      </div>
      {{if .Has}}<div class="pill {{.Class}}">{{.Label}}</div>{{else}}<div class="pill pill-empty">No campaign</div>{{end}}
    </div>
    <div class="card-body">
    {{if .Has}}
      <div>{{if .Title}}{{.Title}}{{else}}(untitled campaign){{end}}</div>
      <div>Start: {{.Start}}</div>
      <div>End: {{.End}}</div>
      {{if ne .URL "#"}}<div><a href="{{.URL}}" target="_blank" rel="noopener">Open campaign</a></div>{{end}}
    {{else}}
      <div class="card-sub">No campaign data yet.</div>
    {{end}}
    </div>
  </div>
{{else}}
  <div class="card-sub">No projects match.</div>
{{end}}
</div>
</body>
</html>
`))
