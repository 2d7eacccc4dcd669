package leaderboard

import (
	"errors"
	"sort"
	"time"
)

type fakeUser struct {
	id        int64
	name      string
	editCount int64
	bot       bool
	noName    bool
}

type fakeUpload struct {
	userID int64
	at     time.Time
}

// fakeStore is an in-memory Store following the same ordering and paging
// contract as the SQL adapter.
type fakeStore struct {
	users     []fakeUser
	revisions []RevisionEvent
	uploads   []fakeUpload

	errTop       error
	errRevCounts error
	errBase      error
	errBots      error
	errRevisions error
	errUploads   error
	errNames     error

	calls        map[string]int
	lastTopLimit int
}

var errBoom = errors.New("boom")

func (f *fakeStore) called(name string) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeStore) user(id int64) (fakeUser, bool) {
	for _, u := range f.users {
		if u.id == id {
			return u, true
		}
	}
	return fakeUser{}, false
}

func page(rows []UserCount, q CountQuery) []UserCount {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].UserID < rows[j].UserID
	})
	if q.Offset >= len(rows) {
		return nil
	}
	rows = rows[q.Offset:]
	if q.Limit < len(rows) {
		rows = rows[:q.Limit]
	}
	return rows
}

func (f *fakeStore) TopEditCounts(q CountQuery) ([]UserCount, error) {
	f.called("TopEditCounts")
	f.lastTopLimit = q.Limit
	if f.errTop != nil {
		return nil, f.errTop
	}
	var rows []UserCount
	for _, u := range f.users {
		if q.ExcludeBots && u.bot {
			continue
		}
		rows = append(rows, UserCount{UserID: u.id, Count: u.editCount})
	}
	return page(rows, q), nil
}

func (f *fakeStore) TopRevisionCounts(since time.Time, q CountQuery) ([]UserCount, error) {
	f.called("TopRevisionCounts")
	if f.errRevCounts != nil {
		return nil, f.errRevCounts
	}
	counts := make(map[int64]int64)
	for _, r := range f.revisions {
		if !r.Timestamp.Before(since) {
			counts[r.UserID]++
		}
	}
	// Users without revisions in the window still rank, with a zero count.
	var rows []UserCount
	for _, u := range f.users {
		if q.ExcludeBots && u.bot {
			continue
		}
		rows = append(rows, UserCount{UserID: u.id, Count: counts[u.id]})
	}
	return page(rows, q), nil
}

func (f *fakeStore) BaseEditCounts(ids []int64) (map[int64]int64, error) {
	f.called("BaseEditCounts")
	if f.errBase != nil {
		return nil, f.errBase
	}
	out := make(map[int64]int64)
	for _, id := range ids {
		if u, ok := f.user(id); ok {
			out[id] = u.editCount
		}
	}
	return out, nil
}

func (f *fakeStore) BotGroupMembers() (map[int64]bool, error) {
	f.called("BotGroupMembers")
	if f.errBots != nil {
		return nil, f.errBots
	}
	out := make(map[int64]bool)
	for _, u := range f.users {
		if u.bot {
			out[u.id] = true
		}
	}
	return out, nil
}

func (f *fakeStore) RevisionsFor(ids []int64, since time.Time) ([]RevisionEvent, error) {
	f.called("RevisionsFor")
	if f.errRevisions != nil {
		return nil, f.errRevisions
	}
	want := idSet(ids)
	var out []RevisionEvent
	for _, r := range f.revisions {
		if want[r.UserID] && !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) UploadsFor(ids []int64, since time.Time) (map[int64]int, error) {
	f.called("UploadsFor")
	if f.errUploads != nil {
		return nil, f.errUploads
	}
	want := idSet(ids)
	out := make(map[int64]int)
	for _, u := range f.uploads {
		if want[u.userID] && !u.at.Before(since) {
			out[u.userID]++
		}
	}
	return out, nil
}

func (f *fakeStore) DisplayNames(ids []int64) (map[int64]string, error) {
	f.called("DisplayNames")
	if f.errNames != nil {
		return nil, f.errNames
	}
	out := make(map[int64]string)
	for _, id := range ids {
		if u, ok := f.user(id); ok && !u.noName {
			out[id] = u.name
		}
	}
	return out, nil
}

func idSet(ids []int64) map[int64]bool {
	s := make(map[int64]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}
