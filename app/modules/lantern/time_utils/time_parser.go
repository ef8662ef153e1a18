// Package lanterntime turns moderator-supplied round times into UTC timestamps.
package lanterntime

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var ErrUnrecognizedTime = errors.New("could not recognize time")

var compactClock = regexp.MustCompile(`(\d{1,2})(\d{2})(am|pm)`)

// TimeParserInterface parses a round boundary relative to now.
type TimeParserInterface interface {
	ParseRoundTime(input, timezone string, now time.Time) (time.Time, error)
}

// TimeParser accepts RFC3339 timestamps or natural language such as "in 2 hours" or
// "tomorrow at 6pm". Natural language is read in the caller's timezone.
type TimeParser struct {
	TimezoneMap map[string]string
	parser      *when.Parser
}

var _ TimeParserInterface = (*TimeParser)(nil)

func NewTimeParser() *TimeParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &TimeParser{
		TimezoneMap: map[string]string{
			"UTC": "UTC",
			"PST": "America/Los_Angeles",
			"PDT": "America/Los_Angeles",
			"MST": "America/Denver",
			"MDT": "America/Denver",
			"CST": "America/Chicago",
			"CDT": "America/Chicago",
			"EST": "America/New_York",
			"EDT": "America/New_York",
		},
		parser: w,
	}
}

// Location resolves an abbreviation or IANA name. Empty means UTC.
func (tp *TimeParser) Location(timezone string) (*time.Location, error) {
	tz := strings.TrimSpace(timezone)
	if tz == "" {
		return time.UTC, nil
	}
	if full, ok := tp.TimezoneMap[strings.ToUpper(tz)]; ok {
		tz = full
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// ParseRoundTime returns input as a UTC time truncated to the second.
func (tp *TimeParser) ParseRoundTime(input, timezone string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty input: %w", ErrUnrecognizedTime)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}

	loc, err := tp.Location(timezone)
	if err != nil {
		return time.Time{}, err
	}

	s = strings.ToLower(s)
	if s == "now" {
		return now.UTC().Truncate(time.Second), nil
	}
	s = strings.ReplaceAll(s, "today ", "today at ")
	s = compactClock.ReplaceAllString(s, "$1:$2 $3")

	r, err := tp.parser.Parse(s, now.In(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%q: %w", input, ErrUnrecognizedTime)
	}
	return r.Time.UTC().Truncate(time.Second), nil
}
