package leaderboard

import "sort"

// Assemble joins count rows, already ordered and paged by the store, with
// display names. Rows without a resolvable name are dropped and ranks are
// numbered from offset+1 over what remains.
func Assemble(rows []UserCount, names map[int64]string, offset int) []Entry {
	entries := make([]Entry, 0, len(rows))
	rank := offset + 1
	for _, row := range rows {
		name, ok := names[row.UserID]
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Rank:        rank,
			UserID:      row.UserID,
			DisplayName: name,
			Value:       float64(row.Count),
		})
		rank++
	}
	return entries
}

// AssembleScored sorts the whole candidate pool by score, descending with
// ties on ascending user id, drops users without a display name and returns
// the [offset, offset+limit) slice. hasMore reports whether ranked users
// remain past the slice.
func AssembleScored(totals map[int64]float64, names map[int64]string, offset, limit int) (entries []Entry, hasMore bool) {
	ranked := make([]Entry, 0, len(totals))
	for id, score := range totals {
		name, ok := names[id]
		if !ok {
			continue
		}
		ranked = append(ranked, Entry{UserID: id, DisplayName: name, Value: score})
	}
	sortEntries(ranked)

	if offset >= len(ranked) {
		return []Entry{}, false
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	hasMore = end < len(ranked)

	entries = ranked[offset:end]
	for i := range entries {
		entries[i].Rank = offset + i + 1
	}
	return entries, hasMore
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].UserID < entries[j].UserID
	})
}
