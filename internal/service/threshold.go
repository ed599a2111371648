package service

// Outcome is the decision computed from a vote tally.
type Outcome string

const (
	OutcomePending  Outcome = "PENDING"
	OutcomeApproved Outcome = "APPROVED"
	OutcomeRejected Outcome = "REJECTED"
)

// ThresholdInput captures everything the evaluator reads. The active officer
// count must be read fresh at evaluation time: officers can be deactivated
// mid-review and the auto-reject rule is defined over the live population.
type ThresholdInput struct {
	AcceptVotes    int
	TotalVotes     int
	ActiveOfficers int
	Threshold      int
}

// ThresholdResult carries the outcome plus the figures that justified it,
// recorded verbatim into the audit trail.
type ThresholdResult struct {
	Outcome            Outcome
	AcceptVotes        int
	TotalVotes         int
	ActiveOfficers     int
	Threshold          int
	RemainingOfficers  int
	MaxPossibleAccepts int
}

// EvaluateThreshold computes the decision outcome from a vote tally.
// Approval: acceptVotes >= threshold. Auto-rejection: at least half the
// active officers have voted (rounding up) and even if every remaining
// officer accepted the threshold could no longer be reached. Anything else
// is pending. Deterministic and side-effect free.
func EvaluateThreshold(in ThresholdInput) ThresholdResult {
	remaining := in.ActiveOfficers - in.TotalVotes
	if remaining < 0 {
		remaining = 0
	}
	result := ThresholdResult{
		Outcome:            OutcomePending,
		AcceptVotes:        in.AcceptVotes,
		TotalVotes:         in.TotalVotes,
		ActiveOfficers:     in.ActiveOfficers,
		Threshold:          in.Threshold,
		RemainingOfficers:  remaining,
		MaxPossibleAccepts: in.AcceptVotes + remaining,
	}

	if in.AcceptVotes >= in.Threshold {
		result.Outcome = OutcomeApproved
		return result
	}

	// ceil(activeOfficers / 2) without floating point.
	halfOfficers := (in.ActiveOfficers + 1) / 2
	if in.TotalVotes >= halfOfficers && result.MaxPossibleAccepts < in.Threshold {
		result.Outcome = OutcomeRejected
	}

	return result
}
