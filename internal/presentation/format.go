package presentation

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FormatDistance describes target relative to now in words, e.g.
// "in about 2 hours" or "5 minutes ago".
func FormatDistance(target, now time.Time) string {
	diff := target.Sub(now)
	phrase := distanceWords(diff.Abs())
	if diff >= 0 {
		return "in " + phrase
	}
	return phrase + " ago"
}

func distanceWords(d time.Duration) string {
	minutes := int(math.Round(d.Minutes()))

	switch {
	case minutes == 0:
		return "less than a minute"
	case minutes < 45:
		return plural(minutes, "minute")
	case minutes < 90:
		return "about 1 hour"
	case minutes < 24*60:
		return "about " + plural(int(math.Round(float64(minutes)/60)), "hour")
	case minutes < 42*60:
		return "1 day"
	case minutes < 30*24*60:
		return plural(int(math.Round(float64(minutes)/(24*60))), "day")
	case minutes < 60*24*60:
		return "about " + plural(int(math.Round(float64(minutes)/(30*24*60))), "month")
	}

	months := minutes / (30 * 24 * 60)
	if months < 12 {
		return plural(months, "month")
	}
	years, rest := months/12, months%12
	switch {
	case rest < 3:
		return "about " + plural(years, "year")
	case rest < 9:
		return "over " + plural(years, "year")
	default:
		return "almost " + plural(years+1, "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatDate renders a long date, e.g. "June 1st, 2025".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s %d%s, %d", t.Month(), t.Day(), ordinal(t.Day()), t.Year())
}

// FormatDateTime renders a short date with time, e.g. "Jun 1, 2025, 12:00 PM".
func FormatDateTime(t time.Time) string {
	return t.Format("Jan 2, 2006, 3:04 PM")
}

func ordinal(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
