package lifecycle

import (
	"testing"
	"time"
)

func TestNextStageAdvancesOneStep(t *testing.T) {
	if next, ok := NextStage(StageNew); !ok || next != StageContact {
		t.Fatalf("new -> %q ok=%v", next, ok)
	}
	if next, ok := NextStage(StageContact); !ok || next != StageConverted {
		t.Fatalf("contact -> %q ok=%v", next, ok)
	}
}

func TestTerminalStagesDoNotAdvance(t *testing.T) {
	for _, s := range []Stage{StageConverted, StageDropped} {
		if next, ok := NextStage(s); ok {
			t.Fatalf("%s advanced to %s, want no-op", s, next)
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Stage
		want     bool
	}{
		{StageNew, StageContact, true},
		{StageNew, StageDropped, true}, // drop side-channel from any non-terminal stage
		{StageContact, StageConverted, true},
		{StageContact, StageDropped, true},
		{StageNew, StageConverted, false}, // no stage skipping
		{StageContact, StageNew, false},   // no regression
		{StageConverted, StageContact, false},
		{StageConverted, StageDropped, false}, // terminal stays terminal
		{StageDropped, StageNew, false},
		{StageDropped, StageDropped, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseStageDefaultsToNew(t *testing.T) {
	if got := ParseStage("CONVERTED"); got != StageNew {
		t.Fatalf("unknown casing should fall back to new, got %q", got)
	}
	if got := ParseStage("contact"); got != StageContact {
		t.Fatalf("got %q", got)
	}
}

func TestFollowUpDue(t *testing.T) {
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if FollowUpDue(today.AddDate(0, 0, -2), today) {
		t.Error("2 days stale: not yet due")
	}
	if !FollowUpDue(today.AddDate(0, 0, -4), today) {
		t.Error("4 days stale: follow-up due")
	}
}
