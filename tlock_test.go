package tlock

import "testing"

func TestRoundForTimeAndTimeForRound(t *testing.T) {
	info := ChainInfo{GenesisTimeUnix: 1000, PeriodSeconds: 10}

	if r := info.RoundForTime(1000); r != 1 {
		t.Fatalf("RoundForTime(genesis) = %d, want 1", r)
	}
	if r := info.RoundForTime(999); r != 1 {
		t.Fatalf("RoundForTime(before genesis) = %d, want 1", r)
	}
	if r := info.RoundForTime(1010); r != 2 {
		t.Fatalf("RoundForTime(boundary) = %d, want 2", r)
	}
	if tm := info.TimeForRound(1); tm != 1000 {
		t.Fatalf("TimeForRound(1) = %d, want 1000", tm)
	}
	if tm := info.TimeForRound(2); tm != 1010 {
		t.Fatalf("TimeForRound(2) = %d, want 1010", tm)
	}
}
