package leaderboard

import (
	"fmt"
	"time"

	"github.com/lerndmina/ContributionsLeaderboard/internal/logger"
)

const (
	DefaultLimit = 25
	MaxLimit     = 500
	MaxOffset    = 1_000_000

	// Oversample is how many times the requested depth (offset+limit) is
	// fetched as scoring candidates, so reordering by score still fills the page.
	Oversample = 3
)

// Service builds leaderboards from a Store.
type Service struct {
	store Store
	calc  *Calculator
	now   func() time.Time
}

func NewService(store Store, weights Weights) *Service {
	s := &Service{store: store, now: time.Now}
	s.calc = NewCalculator(store, weights)
	s.calc.now = func() time.Time { return s.now() }
	return s
}

// Normalize applies defaults and bounds to limit and offset.
func (r Request) Normalize() Request {
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
	if r.Offset > MaxOffset {
		r.Offset = MaxOffset
	}
	if r.Window == "" {
		r.Window = WindowAll
	}
	return r
}

// Build computes one page of the leaderboard. Empty stages produce an empty
// Result with a nil error; store failures that cannot degrade are returned
// wrapped in ErrRepositoryUnavailable.
func (s *Service) Build(req Request) (Result, error) {
	req = req.Normalize()
	strategy := SelectStrategy(req.ScoreMode, req.Window)
	res := Result{Strategy: strategy, Scored: strategy == StrategyScored, Entries: []Entry{}}

	var err error
	switch strategy {
	case StrategyScored:
		err = s.buildScored(req, &res)
	default:
		err = s.buildCounts(req, strategy, &res)
	}
	if err != nil {
		return Result{Strategy: strategy, Scored: res.Scored, Entries: []Entry{}}, err
	}
	res.Count = len(res.Entries)
	return res, nil
}

func (s *Service) buildCounts(req Request, strategy Strategy, res *Result) error {
	// Fetch one extra row to detect whether another page exists.
	q := CountQuery{Limit: req.Limit + 1, Offset: req.Offset, ExcludeBots: req.ExcludeBots}

	var (
		rows []UserCount
		err  error
	)
	if strategy == StrategyUserTable {
		rows, err = s.store.TopEditCounts(q)
	} else {
		rows, err = s.store.TopRevisionCounts(req.Window.Since(s.now()), q)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	res.HasMore = len(rows) > req.Limit
	if res.HasMore {
		rows = rows[:req.Limit]
	}
	if len(rows) == 0 {
		return nil
	}

	if req.ExcludeBots {
		rows = s.dropBotRows(rows)
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.UserID
	}
	names, err := s.store.DisplayNames(ids)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	res.Entries = Assemble(rows, names, req.Offset)
	return nil
}

func (s *Service) buildScored(req Request, res *Result) error {
	pool := Oversample * (req.Offset + req.Limit)
	candidates, err := s.store.TopEditCounts(CountQuery{Limit: pool, ExcludeBots: req.ExcludeBots})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	if len(candidates) == 0 {
		return nil
	}

	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.UserID
	}
	scores := s.calc.Compute(ids, req.Window)
	if req.ExcludeBots {
		for id := range s.bots() {
			delete(scores.Totals, id)
		}
	}
	if len(scores.Totals) == 0 {
		return nil
	}

	scored := make([]int64, 0, len(scores.Totals))
	for id := range scores.Totals {
		scored = append(scored, id)
	}
	names, err := s.store.DisplayNames(scored)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	if len(names) == 0 {
		return nil
	}

	entries, hasMore := AssembleScored(scores.Totals, names, req.Offset, req.Limit)
	// A full pool means users beyond it were never scored.
	res.HasMore = hasMore || (len(candidates) == pool && len(entries) == req.Limit)
	res.Entries = entries

	if req.ShowDebug {
		for _, e := range entries {
			if b, ok := scores.Breakdowns[e.UserID]; ok {
				res.Breakdowns = append(res.Breakdowns, *b)
			}
		}
	}
	return nil
}

// bots returns the bot group, or nothing if it cannot be read. Count queries
// already exclude bots in the store, so this is a second filter only.
func (s *Service) bots() map[int64]bool {
	bots, err := s.store.BotGroupMembers()
	if err != nil {
		logger.Warn("leaderboard: bot group lookup failed: %v", err)
		return nil
	}
	return bots
}

func (s *Service) dropBotRows(rows []UserCount) []UserCount {
	bots := s.bots()
	if len(bots) == 0 {
		return rows
	}
	kept := rows[:0]
	for _, row := range rows {
		if !bots[row.UserID] {
			kept = append(kept, row)
		}
	}
	return kept
}
