package rules

import "time"

const ResetSoonWindowDays = 7

// CycleOutlook is informational: it never triggers the reset itself.
// The billing-cycle boundary being crossed is an external fact.
type CycleOutlook struct {
	DaysUntilReset    int  `json:"days_until_reset"`
	IsResetSoon       bool `json:"is_reset_soon"`
	CreditsWillExpire int  `json:"credits_will_expire"`
}

func Outlook(resetAt, now time.Time, creditsRemaining int) CycleOutlook {
	days := DaysUntilReset(resetAt, now)
	soon := days >= 0 && days <= ResetSoonWindowDays

	expiring := 0
	if soon {
		expiring = creditsRemaining
	}

	return CycleOutlook{
		DaysUntilReset:    days,
		IsResetSoon:       soon,
		CreditsWillExpire: expiring,
	}
}

// DaysUntilReset rounds partial days up, so "tomorrow at any time" is 1.
func DaysUntilReset(resetAt, now time.Time) int {
	diff := resetAt.Sub(now)
	if diff <= 0 {
		return 0
	}
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// NextCycleResetAt advances by exactly one billing cycle.
func NextCycleResetAt(now time.Time) time.Time {
	return now.UTC().AddDate(0, 1, 0)
}

// NextCycleResetFrom advances a stored boundary by whole cycles until
// it lands after now, so a late sweep does not drift the anchor day.
// A zero anchor starts a fresh cycle at now.
func NextCycleResetFrom(anchor, now time.Time) time.Time {
	if anchor.IsZero() {
		return NextCycleResetAt(now)
	}
	next := anchor.UTC()
	for !next.After(now.UTC()) {
		next = next.AddDate(0, 1, 0)
	}
	return next
}
