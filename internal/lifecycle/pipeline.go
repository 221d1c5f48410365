package lifecycle

import "time"

// Lead pipeline stages in their fixed funnel order.
type Stage string

const (
	StageNew       Stage = "new"
	StageContact   Stage = "contact"
	StageConverted Stage = "converted"
	StageDropped   Stage = "dropped"
)

var stageOrder = []Stage{StageNew, StageContact, StageConverted, StageDropped}

// ParseStage normalizes a raw stage value; anything unknown becomes "new",
// which is how unstaged legacy rows were treated.
func ParseStage(raw string) Stage {
	for _, s := range stageOrder {
		if string(s) == raw {
			return s
		}
	}
	return StageNew
}

// Terminal stages expose no further advance action.
func (s Stage) Terminal() bool {
	return s == StageConverted || s == StageDropped
}

// NextStage advances exactly one position in the funnel. It returns false
// for terminal stages: advancing a converted or dropped lead is a no-op.
func NextStage(current Stage) (Stage, bool) {
	if current.Terminal() {
		return current, false
	}
	for i, s := range stageOrder {
		if s == current && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return current, false
}

// CanTransition reports whether moving from one stage to another is legal:
// either the single forward step or the drop side-channel. Leads never
// regress, and terminal stages stay terminal.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageDropped {
		return true
	}
	next, ok := NextStage(from)
	return ok && next == to
}

// followUpAfter is how stale a lead's last contact may get before the
// follow-up flag raises.
const followUpAfter = 3 * 24 * time.Hour

// FollowUpDue reports whether a lead has gone more than three days without
// contact.
func FollowUpDue(lastContact, today time.Time) bool {
	return today.Sub(lastContact) > followUpAfter
}
