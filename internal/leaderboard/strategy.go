package leaderboard

// Strategy is the retrieval path used to build a leaderboard.
type Strategy string

const (
	// StrategyScored computes weighted scores over an oversampled candidate pool.
	StrategyScored Strategy = "scored"
	// StrategyUserTable reads the precomputed lifetime edit count column.
	StrategyUserTable Strategy = "user_table"
	// StrategyRevisionBased counts revisions inside the time window.
	StrategyRevisionBased Strategy = "revision_based"
)

// SelectStrategy picks the retrieval path. Score mode always wins; the user
// table has no time dimension so bounded windows scan revisions.
func SelectStrategy(scoreMode bool, window TimeWindow) Strategy {
	if scoreMode {
		return StrategyScored
	}
	if window == WindowAll {
		return StrategyUserTable
	}
	return StrategyRevisionBased
}
