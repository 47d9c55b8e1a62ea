package retention

import (
	"fmt"

	"github.com/dev-tams/dirkit/internal/listing"
)

// keepBuckets marks the newest entry of each of the most recent daily, ISO
// weekly and monthly buckets, keyed on modification time in UTC. entries must
// be sorted newest first.
func keepBuckets(entries []listing.Entry, keepDaily, keepWeekly, keepMonthly int) map[string]bool {
	keep := make(map[string]bool, len(entries))
	if keepDaily <= 0 && keepWeekly <= 0 && keepMonthly <= 0 {
		return keep
	}

	daily := make(map[string]bool)
	weekly := make(map[string]bool)
	monthly := make(map[string]bool)

	for _, e := range entries {
		t := e.ModTime.UTC()

		if len(daily) < keepDaily {
			b := t.Format("2006-01-02")
			if !daily[b] {
				daily[b] = true
				keep[e.Path] = true
			}
		}

		if len(weekly) < keepWeekly {
			y, w := t.ISOWeek()
			b := fmt.Sprintf("%04d-W%02d", y, w)
			if !weekly[b] {
				weekly[b] = true
				keep[e.Path] = true
			}
		}

		if len(monthly) < keepMonthly {
			b := t.Format("2006-01")
			if !monthly[b] {
				monthly[b] = true
				keep[e.Path] = true
			}
		}

		if len(daily) >= keepDaily && len(weekly) >= keepWeekly && len(monthly) >= keepMonthly {
			break
		}
	}

	return keep
}
