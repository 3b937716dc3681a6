// Package timeparse normalizes Spanish natural-language date and duration
// expressions into canonical values.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// weekdays maps lowercase Spanish weekday names to time.Weekday.
var weekdays = map[string]time.Weekday{
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miércoles": time.Wednesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sábado":    time.Saturday,
	"sabado":    time.Saturday,
	"domingo":   time.Sunday,
}

// months maps lowercase Spanish month names to time.Month.
var months = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var (
	isoPattern      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	slashPattern    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	longFormPattern = regexp.MustCompile(`^(\d{1,2})\s+de\s+([a-záéíóúñ]+)(?:\s+de(?:l)?\s+(\d{4}))?$`)
)

// ParseDate converts expr to a calendar date relative to reference.
// The reference date is always supplied by the caller so the session's
// notion of "today" stays consistent and testable.
//
// Recognized forms: "hoy", "ayer", "anteayer", "<weekday> pasado",
// bare weekday names, ISO "YYYY-MM-DD", "DD/MM/YYYY" and
// "DD de MONTH [de YYYY]". Anything else falls through to go-dateparser
// with the reference as current time.
func ParseDate(expr string, reference time.Time) (time.Time, error) {
	text := strings.ToLower(strings.TrimSpace(expr))
	if text == "" {
		return time.Time{}, NewParseError("empty date expression")
	}
	ref := truncateToDay(reference)

	switch text {
	case "hoy":
		return ref, nil
	case "ayer":
		return ref.AddDate(0, 0, -1), nil
	case "anteayer", "antes de ayer":
		return ref.AddDate(0, 0, -2), nil
	}

	// "<weekday> pasado": most recent past occurrence, always at least a
	// week back when the reference itself falls on that weekday.
	if name, ok := strings.CutSuffix(text, " pasado"); ok {
		if wd, known := weekdays[strings.TrimSpace(name)]; known {
			return lastWeekday(ref, wd), nil
		}
	}

	// Bare weekday name: nearest occurrence, past or today.
	if wd, ok := weekdays[text]; ok {
		days := int(ref.Weekday() - wd)
		if days < 0 {
			days += 7
		}
		return ref.AddDate(0, 0, -days), nil
	}

	if m := isoPattern.FindStringSubmatch(text); m != nil {
		return buildDate(m[3], m[2], m[1], text)
	}
	if m := slashPattern.FindStringSubmatch(text); m != nil {
		return buildDate(m[1], m[2], m[3], text)
	}
	if m := longFormPattern.FindStringSubmatch(text); m != nil {
		month, ok := months[m[2]]
		if !ok {
			return time.Time{}, NewParseError("unknown month in %q", expr)
		}
		day, _ := strconv.Atoi(m[1])
		year := ref.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		return validDate(year, month, day, expr)
	}

	return fallbackParse(expr, ref)
}

// lastWeekday returns the most recent strictly past occurrence of wd.
func lastWeekday(ref time.Time, wd time.Weekday) time.Time {
	days := int(ref.Weekday() - wd)
	if days <= 0 {
		days += 7
	}
	return ref.AddDate(0, 0, -days)
}

func buildDate(dayStr, monthStr, yearStr, original string) (time.Time, error) {
	day, _ := strconv.Atoi(dayStr)
	month, _ := strconv.Atoi(monthStr)
	year, _ := strconv.Atoi(yearStr)
	return validDate(year, time.Month(month), day, original)
}

// validDate rejects normalized overflow (e.g. 32/01 becoming 01/02).
func validDate(year int, month time.Month, day int, original string) (time.Time, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, NewParseError("invalid calendar date %q", original)
	}
	return t, nil
}

// fallbackParse hands unrecognized expressions to go-dateparser, pinned
// to the reference date and biased toward the past.
func fallbackParse(expr string, ref time.Time) (time.Time, error) {
	parser := dps.Parser{}
	cfg := &dps.Configuration{
		CurrentTime:         ref,
		PreferredDateSource: dps.Past,
		Languages:           []string{"es"},
	}

	parsed, err := parser.Parse(cfg, expr)
	if err != nil {
		return time.Time{}, NewParseError("could not parse date %q: %v", expr, err)
	}
	if parsed.IsZero() {
		return time.Time{}, NewParseError("could not parse date %q", expr)
	}
	return truncateToDay(parsed.Time), nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var durationPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(d|h|m)\b`)

// workdaySeconds is the value of the "d" unit, a working day of 8 hours.
const workdaySeconds = 8 * 3600

// ParseDuration converts expressions like "1h 30m", "90m", "1,5h" or
// "1d" (an 8h working day) to whole seconds. A bare number with no unit
// is rejected as ambiguous, and a total of zero is an error.
func ParseDuration(expr string) (int, error) {
	text := strings.TrimSpace(expr)
	if text == "" {
		return 0, NewParseError("no time specified")
	}

	matches := durationPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, NewParseError("duration %q needs an explicit unit, e.g. \"2h\" or \"30m\"", expr)
	}

	// Everything outside the matched tokens must be whitespace, so a bare
	// trailing number ("1h 30") cannot slip through unnoticed.
	remainder := durationPattern.ReplaceAllString(text, "")
	if strings.TrimSpace(remainder) != "" {
		return 0, NewParseError("could not parse duration %q", expr)
	}

	var totalSeconds float64
	for _, m := range matches {
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			return 0, NewParseError("could not parse duration %q", expr)
		}
		switch strings.ToLower(m[2]) {
		case "d":
			totalSeconds += value * workdaySeconds
		case "h":
			totalSeconds += value * 3600
		case "m":
			totalSeconds += value * 60
		}
	}

	seconds := int(totalSeconds + 0.5)
	if seconds <= 0 {
		return 0, NewParseError("no time specified")
	}
	return seconds, nil
}
