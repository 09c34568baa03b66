package domain

// Transition is the effect of one vote request on the ledger and the dish counters.
type Transition struct {
	// Next is the resulting vote, nil when the vote is retracted.
	Next         *VoteType
	LikeDelta    int64
	DislikeDelta int64
}

// Apply resolves a requested vote against the existing one. Repeating the existing
// vote retracts it, the opposite vote switches it, and no vote creates one.
func Apply(existing *VoteType, requested VoteType) Transition {
	if existing == nil {
		return Transition{Next: &requested, LikeDelta: likeDelta(requested, 1), DislikeDelta: dislikeDelta(requested, 1)}
	}
	if *existing == requested {
		return Transition{Next: nil, LikeDelta: likeDelta(requested, -1), DislikeDelta: dislikeDelta(requested, -1)}
	}
	return Transition{
		Next:         &requested,
		LikeDelta:    likeDelta(requested, 1) + likeDelta(*existing, -1),
		DislikeDelta: dislikeDelta(requested, 1) + dislikeDelta(*existing, -1),
	}
}

func likeDelta(v VoteType, sign int64) int64 {
	if v == VoteLike {
		return sign
	}
	return 0
}

func dislikeDelta(v VoteType, sign int64) int64 {
	if v == VoteDislike {
		return sign
	}
	return 0
}
