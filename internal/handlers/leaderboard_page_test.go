package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/lerndmina/ContributionsLeaderboard/internal/leaderboard"
)

type fakeBoard struct {
	res  leaderboard.Result
	err  error
	reqs []leaderboard.Request
}

func (f *fakeBoard) Build(req leaderboard.Request) (leaderboard.Result, error) {
	f.reqs = append(f.reqs, req)
	return f.res, f.err
}

func newRouter(board Builder) http.Handler {
	h := New(board, nil)
	r := chi.NewRouter()
	r.Use(h.TrackPageViews)
	r.Get("/leaderboard", h.LeaderboardPage)
	r.Get("/api/leaderboard", h.LeaderboardAPI)
	r.Get("/healthz", h.Healthz)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestParseRequestDefaults(t *testing.T) {
	req := parseRequest(httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	want := leaderboard.Request{Limit: 25, Offset: 0, ExcludeBots: true, Window: leaderboard.WindowAll}
	if req != want {
		t.Fatalf("parseRequest = %+v, want %+v", req, want)
	}
}

func TestParseRequestOverrides(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/leaderboard?limit=50&offset=100&excludeBots=0&excludeBots=1&timeFrame=year&scoreMode=on&showDebug=true", nil)
	req := parseRequest(r)
	want := leaderboard.Request{Limit: 50, Offset: 100, ExcludeBots: false, Window: leaderboard.WindowYear, ScoreMode: true, ShowDebug: true}
	if req != want {
		t.Fatalf("parseRequest = %+v, want %+v", req, want)
	}
}

func TestParseRequestBadValues(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/leaderboard?limit=lots&offset=-5&timeFrame=week&scoreMode=maybe", nil)
	req := parseRequest(r)
	if req.Limit != 25 || req.Offset != 0 || req.Window != leaderboard.WindowAll || req.ScoreMode {
		t.Fatalf("parseRequest = %+v", req)
	}
}

func TestLeaderboardPageRendersTable(t *testing.T) {
	board := &fakeBoard{res: leaderboard.Result{
		Entries: []leaderboard.Entry{
			{Rank: 11, UserID: 2, DisplayName: "Ada <admin>", Value: 1200},
			{Rank: 12, UserID: 5, DisplayName: "Grace", Value: 80},
		},
		Count:   2,
		HasMore: true,
	}}
	rec := get(t, newRouter(board), "/leaderboard?limit=10&offset=10&timeFrame=month")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<td>11</td>", "Ada &lt;admin&gt;", "1,200", "<td>12</td>", "Grace", `rel="prev"`, `rel="next"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "No contributors") {
		t.Error("table page should not show the empty message")
	}
}

func TestLeaderboardPageScoresUseOneDecimal(t *testing.T) {
	board := &fakeBoard{res: leaderboard.Result{
		Scored:  true,
		Entries: []leaderboard.Entry{{Rank: 1, UserID: 1, DisplayName: "A", Value: 71}},
	}}
	body := get(t, newRouter(board), "/leaderboard?scoreMode=1").Body.String()
	if !strings.Contains(body, ">71.0<") || !strings.Contains(body, "<th>Score</th>") {
		t.Fatalf("score not rendered with one decimal:\n%s", body)
	}
}

func TestLeaderboardPageEmpty(t *testing.T) {
	rec := get(t, newRouter(&fakeBoard{}), "/leaderboard")
	body := rec.Body.String()
	if !strings.Contains(body, "No contributors match these filters.") {
		t.Fatal("missing no-results message")
	}
	if strings.Contains(body, `<table class="leaderboard">`) {
		t.Fatal("empty result must not render a table")
	}
}

func TestEmptyPagePastTheEndLinksBack(t *testing.T) {
	body := get(t, newRouter(&fakeBoard{}), "/leaderboard?limit=25&offset=500").Body.String()
	if !strings.Contains(body, "No contributors match these filters.") {
		t.Fatal("missing no-results message")
	}
	if !strings.Contains(body, `rel="prev"`) || !strings.Contains(body, "offset=475") {
		t.Fatalf("no previous link on an empty page past the end:\n%s", body)
	}
	if strings.Contains(body, `rel="next"`) {
		t.Fatal("unexpected next link")
	}
}

func TestLeaderboardPageErrorInline(t *testing.T) {
	board := &fakeBoard{err: fmt.Errorf("%w: dial tcp: connection refused", leaderboard.ErrRepositoryUnavailable)}
	rec := get(t, newRouter(board), "/leaderboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Database error:") || !strings.Contains(body, "connection refused") {
		t.Fatalf("error not rendered inline:\n%s", body)
	}
}

func TestPaginationLinksCarryParameters(t *testing.T) {
	board := &fakeBoard{res: leaderboard.Result{
		Entries: []leaderboard.Entry{{Rank: 6, UserID: 1, DisplayName: "A", Value: 1}},
		HasMore: true,
	}}
	rec := get(t, newRouter(board), "/api/leaderboard?limit=10&offset=5&timeFrame=year&scoreMode=true&excludeBots=false&showDebug=1")

	var resp leaderboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	prev, err := url.Parse(resp.Prev)
	if err != nil {
		t.Fatalf("prev url: %v", err)
	}
	if prev.Path != "/api/leaderboard" {
		t.Fatalf("prev path = %q", prev.Path)
	}
	pq := prev.Query()
	if pq.Get("offset") != "0" || pq.Get("limit") != "10" || pq.Get("timeFrame") != "year" ||
		pq.Get("scoreMode") != "true" || pq.Get("excludeBots") != "false" || pq.Get("showDebug") != "true" {
		t.Fatalf("prev query = %v", pq)
	}
	next, _ := url.Parse(resp.Next)
	if next.Query().Get("offset") != "15" {
		t.Fatalf("next offset = %q, want 15", next.Query().Get("offset"))
	}
}

func TestNoPrevLinkOnFirstPageNoNextOnLast(t *testing.T) {
	board := &fakeBoard{res: leaderboard.Result{Entries: []leaderboard.Entry{{Rank: 1, UserID: 1, DisplayName: "A", Value: 1}}}}
	rec := get(t, newRouter(board), "/api/leaderboard")
	var resp leaderboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Prev != "" || resp.Next != "" {
		t.Fatalf("prev=%q next=%q, want none", resp.Prev, resp.Next)
	}
}

func TestLeaderboardAPIError(t *testing.T) {
	board := &fakeBoard{err: errors.New("timeout")}
	rec := get(t, newRouter(board), "/api/leaderboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var resp leaderboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Error, "timeout") || resp.Result != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestDebugSectionOnlyWhenRequested(t *testing.T) {
	board := &fakeBoard{res: leaderboard.Result{
		Scored:     true,
		Strategy:   leaderboard.StrategyScored,
		Entries:    []leaderboard.Entry{{Rank: 1, UserID: 3, DisplayName: "C", Value: 12}},
		Breakdowns: []leaderboard.ScoreBreakdown{{UserID: 3, Total: 12, Steps: []string{"base edit count: 2", "1 new pages: +10.0"}}},
	}}
	r := newRouter(board)
	if body := get(t, r, "/leaderboard?scoreMode=1").Body.String(); strings.Contains(body, "Diagnostics") {
		t.Fatal("diagnostics shown without showDebug")
	}
	body := get(t, r, "/leaderboard?scoreMode=1&showDebug=1").Body.String()
	if !strings.Contains(body, "Diagnostics") || !strings.Contains(body, "1 new pages: +10.0") || !strings.Contains(body, "scored") {
		t.Fatalf("diagnostics missing:\n%s", body)
	}
}

func TestTrackPageViewsDisabledSetsNoCookie(t *testing.T) {
	rec := get(t, newRouter(&fakeBoard{}), "/leaderboard")
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("unexpected cookies: %v", rec.Result().Cookies())
	}
}

func TestHealthz(t *testing.T) {
	rec := get(t, newRouter(&fakeBoard{}), "/healthz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestFormatCount(t *testing.T) {
	cases := map[int64]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4500: "-4,500"}
	for n, want := range cases {
		if got := formatCount(n); got != want {
			t.Errorf("formatCount(%d) = %q, want %q", n, got, want)
		}
	}
}
