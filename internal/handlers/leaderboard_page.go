package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lerndmina/ContributionsLeaderboard/internal/leaderboard"
	"github.com/lerndmina/ContributionsLeaderboard/internal/logger"
)

var limitChoices = []int{10, 25, 50, 100}

type timeFrameChoice struct {
	Value leaderboard.TimeWindow
	Label string
}

var timeFrameChoices = []timeFrameChoice{
	{leaderboard.WindowAll, "All time"},
	{leaderboard.WindowMonth, "Past month"},
	{leaderboard.WindowYear, "Past year"},
}

// LeaderboardPageData is passed to the leaderboard page template.
type LeaderboardPageData struct {
	Request  leaderboard.Request
	Result   leaderboard.Result
	Error    string
	PrevURL  string
	NextURL  string
	Limits   []int
	Windows  []timeFrameChoice
	ValueCol string
}

// parseRequest reads leaderboard parameters from the query string. Missing
// or malformed values fall back to their defaults.
func parseRequest(r *http.Request) leaderboard.Request {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = leaderboard.DefaultLimit
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	return leaderboard.Request{
		Limit:       limit,
		Offset:      offset,
		ExcludeBots: parseBool(q.Get("excludeBots"), true),
		Window:      leaderboard.ParseTimeWindow(q.Get("timeFrame")),
		ScoreMode:   parseBool(q.Get("scoreMode"), false),
		ShowDebug:   parseBool(q.Get("showDebug"), false),
	}.Normalize()
}

func parseBool(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	case "0", "false", "off", "no":
		return false
	default:
		return fallback
	}
}

// pageURL links to the same leaderboard with every parameter carried and the
// offset replaced.
func pageURL(path string, req leaderboard.Request, offset int) string {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(req.Limit))
	v.Set("offset", strconv.Itoa(offset))
	v.Set("excludeBots", strconv.FormatBool(req.ExcludeBots))
	v.Set("timeFrame", string(req.Window))
	v.Set("scoreMode", strconv.FormatBool(req.ScoreMode))
	if req.ShowDebug {
		v.Set("showDebug", "true")
	}
	return path + "?" + v.Encode()
}

func (h *Handler) buildPage(r *http.Request) LeaderboardPageData {
	req := parseRequest(r)
	data := LeaderboardPageData{
		Request:  req,
		Limits:   limitChoices,
		Windows:  timeFrameChoices,
		ValueCol: "Edits",
	}
	if req.ScoreMode {
		data.ValueCol = "Score"
	}

	res, err := h.board.Build(req)
	if err != nil {
		logger.Error("leaderboard: %v", err)
		data.Error = "Database error: " + err.Error()
		return data
	}
	data.Result = res

	if req.Offset > 0 {
		prev := req.Offset - req.Limit
		if prev < 0 {
			prev = 0
		}
		data.PrevURL = pageURL(r.URL.Path, req, prev)
	}
	if res.HasMore {
		data.NextURL = pageURL(r.URL.Path, req, req.Offset+req.Limit)
	}
	return data
}

// LeaderboardPage renders the HTML leaderboard. Failures are shown inline and
// the response status stays 200.
func (h *Handler) LeaderboardPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "leaderboard_page", h.buildPage(r))
}

// leaderboardResponse is the JSON form of one leaderboard page.
type leaderboardResponse struct {
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
	TimeFrame   string              `json:"timeFrame"`
	ScoreMode   bool                `json:"scoreMode"`
	ExcludeBots bool                `json:"excludeBots"`
	Result      *leaderboard.Result `json:"result,omitempty"`
	Prev        string              `json:"prev,omitempty"`
	Next        string              `json:"next,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// LeaderboardAPI returns the same page as JSON.
func (h *Handler) LeaderboardAPI(w http.ResponseWriter, r *http.Request) {
	data := h.buildPage(r)
	resp := leaderboardResponse{
		Limit:       data.Request.Limit,
		Offset:      data.Request.Offset,
		TimeFrame:   string(data.Request.Window),
		ScoreMode:   data.Request.ScoreMode,
		ExcludeBots: data.Request.ExcludeBots,
		Prev:        data.PrevURL,
		Next:        data.NextURL,
		Error:       data.Error,
	}
	if data.Error == "" {
		resp.Result = &data.Result
	}
	writeJSON(w, http.StatusOK, resp)
}
