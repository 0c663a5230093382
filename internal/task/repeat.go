package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var repeatParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseRepeat converts a configured repeat expression into an interval.
//
// Accepted forms are a bare number of minutes ("5"), a Go duration ("90m") and
// the fixed-delay descriptor "@every 1h". Calendar cron expressions are
// rejected because rescheduling advances by a constant step. The result must
// be a whole number of minutes. An empty string means "no repeat".
func ParseRepeat(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}

	var interval time.Duration
	switch {
	case strings.HasPrefix(s, "@"):
		schedule, err := repeatParser.Parse(s)
		if err != nil {
			return 0, fmt.Errorf("repeat %q: %w", raw, err)
		}
		constant, ok := schedule.(cron.ConstantDelaySchedule)
		if !ok {
			return 0, fmt.Errorf("repeat %q: only @every intervals are supported", raw)
		}
		interval = constant.Delay
	case strings.ContainsAny(s, " \t"):
		return 0, fmt.Errorf("repeat %q: calendar cron expressions are not supported, use @every", raw)
	default:
		if minutes, err := strconv.Atoi(s); err == nil {
			interval = time.Duration(minutes) * time.Minute
			break
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("repeat %q: use minutes like \"5\", a duration like \"5m\", or \"@every 5m\"", raw)
		}
		interval = d
	}

	if interval <= 0 {
		return 0, fmt.Errorf("repeat %q: interval must be positive", raw)
	}
	if interval%time.Minute != 0 {
		return 0, fmt.Errorf("repeat %q: interval must be a whole number of minutes", raw)
	}
	return interval, nil
}
