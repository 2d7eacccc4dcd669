package leaderboard

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lerndmina/ContributionsLeaderboard/internal/logger"
)

// Size tier boundaries on the resulting content length of an edit.
const (
	mediumTierMin = 100
	largeTierMin  = 1000
)

// Score component names used in breakdowns.
const (
	ComponentBase     = "base"
	ComponentNewPages = "new_pages"
	ComponentSmall    = "small_edits"
	ComponentMedium   = "medium_edits"
	ComponentLarge    = "large_edits"
	ComponentUploads  = "uploads"
)

// Weights is the scoring table. Treat it as immutable once handed to a
// Calculator.
type Weights struct {
	NewPage float64
	Small   float64
	Medium  float64
	Large   float64
	Upload  float64
	// Patrol is carried in the table but no scoring path applies it. It is
	// unknown whether patrol bonuses were meant to be added per revision.
	Patrol float64

	// ContentModels multiplies the per-revision bonus by page content model.
	// Missing or unknown models use 1.0.
	ContentModels map[string]float64
}

// DefaultWeights returns the production scoring table.
func DefaultWeights() Weights {
	return Weights{
		NewPage: 10,
		Small:   1,
		Medium:  3,
		Large:   5,
		Upload:  8,
		Patrol:  2,
		ContentModels: map[string]float64{
			"wikitext":   1.0,
			"javascript": 1.3,
			"css":        1.3,
			"json":       1.2,
			"text":       0.8,
		},
	}
}

// ContentModelWeight returns the multiplier for a content model.
func (w Weights) ContentModelWeight(model string) float64 {
	if m, ok := w.ContentModels[model]; ok {
		return m
	}
	return 1.0
}

// RevisionBonus returns the bonus a single revision earns and the component
// it is counted under.
func (w Weights) RevisionBonus(rev RevisionEvent) (float64, string) {
	var (
		bonus     float64
		component string
	)
	switch {
	case rev.IsNewPage:
		bonus, component = w.NewPage, ComponentNewPages
	case rev.ByteLength < mediumTierMin:
		bonus, component = w.Small, ComponentSmall
	case rev.ByteLength < largeTierMin:
		bonus, component = w.Medium, ComponentMedium
	default:
		bonus, component = w.Large, ComponentLarge
	}
	return bonus * w.ContentModelWeight(rev.ContentModel), component
}

// ScoreSource is the part of the store the calculator reads.
type ScoreSource interface {
	BaseEditCounts(ids []int64) (map[int64]int64, error)
	RevisionsFor(ids []int64, since time.Time) ([]RevisionEvent, error)
	UploadsFor(ids []int64, since time.Time) (map[int64]int, error)
}

// Scores holds per-user totals, rounded to one decimal, and the breakdowns
// they were derived from.
type Scores struct {
	Totals     map[int64]float64
	Breakdowns map[int64]*ScoreBreakdown
}

// Calculator turns raw activity into contribution scores.
type Calculator struct {
	src     ScoreSource
	weights Weights
	now     func() time.Time
}

func NewCalculator(src ScoreSource, weights Weights) *Calculator {
	return &Calculator{src: src, weights: weights, now: time.Now}
}

// tally accumulates one user's score while revisions are walked.
type tally struct {
	base     int64
	counts   map[string]int
	subtotal map[string]float64
}

// Compute scores every user in ids over the window.
//
// Each user starts from their lifetime edit count, which is not filtered by
// the window. If the revision or upload queries fail the base counts are
// returned without bonuses; if the base query fails the result is empty.
func (c *Calculator) Compute(ids []int64, window TimeWindow) Scores {
	out := Scores{
		Totals:     make(map[int64]float64),
		Breakdowns: make(map[int64]*ScoreBreakdown),
	}
	if len(ids) == 0 {
		return out
	}

	base, err := c.src.BaseEditCounts(ids)
	if err != nil {
		logger.Warn("leaderboard: base edit counts failed: %v", err)
		return out
	}

	tallies := make(map[int64]*tally, len(base))
	for id, n := range base {
		tallies[id] = &tally{
			base:     n,
			counts:   make(map[string]int),
			subtotal: make(map[string]float64),
		}
	}

	since := window.Since(c.now())
	revs, err := c.src.RevisionsFor(ids, since)
	if err == nil {
		var uploads map[int64]int
		uploads, err = c.src.UploadsFor(ids, since)
		if err == nil {
			c.applyBonuses(tallies, revs, uploads)
		}
	}
	if err != nil {
		logger.Warn("leaderboard: detailed scoring failed, using edit counts only: %v", err)
		for _, t := range tallies {
			t.counts = make(map[string]int)
			t.subtotal = make(map[string]float64)
		}
	}

	for id, t := range tallies {
		b := t.breakdown(id)
		out.Totals[id] = b.Total
		out.Breakdowns[id] = b
	}
	return out
}

func (c *Calculator) applyBonuses(tallies map[int64]*tally, revs []RevisionEvent, uploads map[int64]int) {
	for _, rev := range revs {
		t, ok := tallies[rev.UserID]
		if !ok {
			continue
		}
		bonus, component := c.weights.RevisionBonus(rev)
		t.counts[component]++
		t.subtotal[component] += bonus
	}
	for id, n := range uploads {
		t, ok := tallies[id]
		if !ok || n <= 0 {
			continue
		}
		t.counts[ComponentUploads] += n
		t.subtotal[ComponentUploads] += float64(n) * c.weights.Upload
	}
}

var componentLabels = map[string]string{
	ComponentNewPages: "new pages",
	ComponentSmall:    "small edits",
	ComponentMedium:   "medium edits",
	ComponentLarge:    "large edits",
	ComponentUploads:  "uploads",
}

func (t *tally) breakdown(id int64) *ScoreBreakdown {
	b := &ScoreBreakdown{
		UserID:     id,
		Components: map[string]float64{ComponentBase: float64(t.base)},
		Steps:      []string{fmt.Sprintf("base edit count: %d", t.base)},
	}
	total := float64(t.base)

	names := make([]string, 0, len(t.subtotal))
	for name := range t.subtotal {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sub := t.subtotal[name]
		b.Components[name] = roundTo1(sub)
		b.Steps = append(b.Steps, fmt.Sprintf("%d %s: +%.1f", t.counts[name], componentLabels[name], sub))
		total += sub
	}

	b.Total = roundTo1(total)
	b.Steps = append(b.Steps, fmt.Sprintf("total: %.1f", b.Total))
	return b
}

func roundTo1(f float64) float64 {
	return math.Round(f*10) / 10
}
