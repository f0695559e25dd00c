package assignment

import "github.com/shopspring/decimal"

func buildEventSummary(eventID string, byStatus map[string]int) EventSummary {
	summary := EventSummary{EventID: eventID, ByStatus: map[string]int{}}
	for status, count := range byStatus {
		summary.ByStatus[status] = count
		summary.Total += count
		if status == StatusCompleted {
			summary.Completed += count
		}
		if !IsTerminal(status) {
			summary.Outstanding += count
		}
	}
	summary.CompletionRate = percentage(summary.Completed, summary.Total)
	return summary
}

// percentage returns part/total*100 rounded to 2 places, or 0 when total is 0.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	rate := decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
	return rate.InexactFloat64()
}
