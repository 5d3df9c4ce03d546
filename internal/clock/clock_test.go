package clock

import (
	"testing"
	"time"
)

func TestFixed(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	clk := NewFixed(at)
	if got := clk.Now(); !got.Equal(at) || got.Location() != time.UTC {
		t.Fatalf("expected %v in UTC, got %v", at, got)
	}
}

func TestManual_Advance(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := NewManual(at)
	clk.Advance(90 * time.Second)
	if got := clk.Now(); !got.Equal(at.Add(90 * time.Second)) {
		t.Fatalf("expected %v, got %v", at.Add(90*time.Second), got)
	}
}
