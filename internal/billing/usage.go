package billing

import (
	"fmt"
	"math"
	"time"
)

// BillingPeriod buckets a timestamp into the year-month key usage invoicing
// batches on.
func BillingPeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// ComputeUsage converts a call duration into billable minutes (two decimal
// places) and the charge at the client's per-minute rate.
func ComputeUsage(durationSeconds int, perMinuteRateCents int) (minutes float64, amountCents int64) {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	minutes = math.Round(float64(durationSeconds)/60*100) / 100
	amountCents = int64(math.Round(minutes * float64(perMinuteRateCents)))
	return minutes, amountCents
}

// UsageDescription renders the line-item description for a usage invoice.
func UsageDescription(period string, minutes float64) string {
	return fmt.Sprintf("Call usage for %s - %.2f minutes", period, minutes)
}
