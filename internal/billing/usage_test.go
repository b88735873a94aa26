package billing

import (
	"testing"
	"time"
)

func TestComputeUsage(t *testing.T) {
	// Rate of 20 cents per minute, the default campaign rate.
	tests := []struct {
		seconds     int
		wantMinutes float64
		wantCents   int64
	}{
		{0, 0, 0},
		{59, 0.98, 20},
		{60, 1.00, 20},
		{125, 2.08, 42},
		{3661, 61.02, 1220},
	}
	for _, tt := range tests {
		minutes, cents := ComputeUsage(tt.seconds, 20)
		if minutes != tt.wantMinutes {
			t.Errorf("ComputeUsage(%d) minutes = %.2f, want %.2f", tt.seconds, minutes, tt.wantMinutes)
		}
		if cents != tt.wantCents {
			t.Errorf("ComputeUsage(%d) cents = %d, want %d", tt.seconds, cents, tt.wantCents)
		}
	}
}

func TestComputeUsageNegativeDuration(t *testing.T) {
	minutes, cents := ComputeUsage(-30, 20)
	if minutes != 0 || cents != 0 {
		t.Errorf("negative duration should bill nothing, got %.2f min / %d cents", minutes, cents)
	}
}

func TestBillingPeriod(t *testing.T) {
	at := time.Date(2025, time.March, 31, 23, 30, 0, 0, time.UTC)
	if got := BillingPeriod(at); got != "2025-03" {
		t.Errorf("BillingPeriod = %s, want 2025-03", got)
	}
}
