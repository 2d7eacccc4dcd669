package main

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

var contentModels = []string{"wikitext", "wikitext", "wikitext", "wikitext", "javascript", "css", "json", "text"}

type seedUser struct {
	ID        int64
	Name      string
	EditCount int64
	Bot       bool
}

type seedPage struct {
	ID           int64
	Title        string
	ContentModel string
}

type seedRevision struct {
	ID        int64
	PageID    int64
	ActorID   int64
	ParentID  int64
	Length    int64
	Timestamp time.Time
}

type seedUpload struct {
	Name      string
	ActorID   int64
	Timestamp time.Time
}

type dataset struct {
	Users     []seedUser
	Pages     []seedPage
	Revisions []seedRevision
	Uploads   []seedUpload
}

// generate builds a deterministic demo wiki. Actor ids equal user ids.
// Revisions are ordered by time and the first revision of every page has no
// parent, so page creations fall out of the history.
func generate(rng *rand.Rand, users, bots, pages int, span time.Duration, now time.Time) dataset {
	var ds dataset
	for i := 1; i <= pages; i++ {
		ds.Pages = append(ds.Pages, seedPage{
			ID:           int64(i),
			Title:        fmt.Sprintf("Demo_page_%d", i),
			ContentModel: contentModels[rng.Intn(len(contentModels))],
		})
	}

	type draft struct {
		page, actor int64
		length      int64
		ts          time.Time
	}
	var drafts []draft
	total := users + bots
	for i := 1; i <= total; i++ {
		u := seedUser{ID: int64(i), Name: fmt.Sprintf("Contributor%03d", i)}
		// Long-tailed activity: a few heavy editors, many light ones.
		edits := int(200 / float64(i)) + rng.Intn(10)
		if i > users {
			u.Bot = true
			u.Name = fmt.Sprintf("MaintenanceBot%d", i-users)
			edits = 400 + rng.Intn(200)
		}
		for e := 0; e < edits; e++ {
			drafts = append(drafts, draft{
				page:   int64(1 + rng.Intn(pages)),
				actor:  u.ID,
				length: int64(rng.Intn(3000)),
				ts:     now.Add(-time.Duration(rng.Int63n(int64(span)))),
			})
		}
		u.EditCount = int64(edits)
		ds.Users = append(ds.Users, u)

		for up := rng.Intn(4); up > 0 && !u.Bot; up-- {
			ds.Uploads = append(ds.Uploads, seedUpload{
				Name:      fmt.Sprintf("Upload_%d_%d.png", u.ID, up),
				ActorID:   u.ID,
				Timestamp: now.Add(-time.Duration(rng.Int63n(int64(span)))),
			})
		}
	}

	sort.SliceStable(drafts, func(i, j int) bool { return drafts[i].ts.Before(drafts[j].ts) })
	latest := make(map[int64]int64, pages)
	for i, d := range drafts {
		id := int64(i + 1)
		ds.Revisions = append(ds.Revisions, seedRevision{
			ID:        id,
			PageID:    d.page,
			ActorID:   d.actor,
			ParentID:  latest[d.page],
			Length:    d.length,
			Timestamp: d.ts,
		})
		latest[d.page] = id
	}
	return ds
}
