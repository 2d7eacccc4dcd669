package leaderboard

import (
	"errors"
	"time"
)

// ErrRepositoryUnavailable wraps any failure of the store on a path that
// cannot degrade (count queries, candidate selection, name lookup).
var ErrRepositoryUnavailable = errors.New("leaderboard: repository unavailable")

// TimeWindow is the retrospective period contributions are counted over.
type TimeWindow string

const (
	WindowAll   TimeWindow = "all"
	WindowMonth TimeWindow = "month"
	WindowYear  TimeWindow = "year"
)

// ParseTimeWindow maps a request value to a window. Unknown values mean all-time.
func ParseTimeWindow(s string) TimeWindow {
	switch TimeWindow(s) {
	case WindowMonth:
		return WindowMonth
	case WindowYear:
		return WindowYear
	default:
		return WindowAll
	}
}

// Since returns the inclusive lower timestamp bound of the window relative to
// now, or the zero time when the window is unbounded.
func (w TimeWindow) Since(now time.Time) time.Time {
	switch w {
	case WindowMonth:
		return now.AddDate(0, 0, -30)
	case WindowYear:
		return now.AddDate(0, 0, -365)
	default:
		return time.Time{}
	}
}

// RevisionEvent is one qualifying edit authored by a user.
type RevisionEvent struct {
	UserID       int64
	IsNewPage    bool
	ByteLength   int64
	ContentModel string // "" when the schema does not tag content models
	Timestamp    time.Time
}

// UserCount is one row of a count-ordered query.
type UserCount struct {
	UserID int64
	Count  int64
}

// CountQuery pages a count-ordered query.
type CountQuery struct {
	Limit       int
	Offset      int
	ExcludeBots bool
}

// ScoreBreakdown records how a user's score was derived. Diagnostic only.
type ScoreBreakdown struct {
	UserID     int64              `json:"userId"`
	Components map[string]float64 `json:"components"`
	Steps      []string           `json:"steps"`
	Total      float64            `json:"total"`
}

// Entry is one ranked row of the leaderboard.
type Entry struct {
	Rank        int     `json:"rank"`
	UserID      int64   `json:"userId"`
	DisplayName string  `json:"displayName"`
	Value       float64 `json:"value"`
}

// Result is the ordered page produced by any strategy.
type Result struct {
	Entries    []Entry          `json:"entries"`
	Count      int              `json:"count"`
	Strategy   Strategy         `json:"strategy"`
	Scored     bool             `json:"scored"`
	HasMore    bool             `json:"hasMore"`
	Breakdowns []ScoreBreakdown `json:"breakdowns,omitempty"`
}

// Empty reports whether the result has no rows to show.
func (r Result) Empty() bool { return len(r.Entries) == 0 }

// Request carries the leaderboard parameters of a single view.
type Request struct {
	Limit       int
	Offset      int
	ExcludeBots bool
	Window      TimeWindow
	ScoreMode   bool
	ShowDebug   bool
}

// Store is the read-only activity repository the leaderboard is computed from.
//
// Count queries return rows ordered by count descending, ties by ascending
// user id, already paged. ExcludeBots drops members of the bot group.
type Store interface {
	TopEditCounts(q CountQuery) ([]UserCount, error)
	TopRevisionCounts(since time.Time, q CountQuery) ([]UserCount, error)
	BaseEditCounts(ids []int64) (map[int64]int64, error)
	BotGroupMembers() (map[int64]bool, error)
	RevisionsFor(ids []int64, since time.Time) ([]RevisionEvent, error)
	UploadsFor(ids []int64, since time.Time) (map[int64]int, error)
	DisplayNames(ids []int64) (map[int64]string, error)
}
