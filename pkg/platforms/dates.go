package platforms

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
)

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// parseWeekdays returns nil (every day) for an empty list.
func parseWeekdays(names []string) (map[time.Weekday]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make(map[time.Weekday]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "daily" || key == "*" {
			return nil, nil
		}
		wd, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("unknown update day %q", name)
		}
		out[wd] = true
	}
	return out, nil
}

// PublishesOn reports whether the platform is scheduled to publish on wd.
func (p Platform) PublishesOn(wd time.Weekday) bool {
	days, err := parseWeekdays(p.UpdateDays)
	if err != nil || days == nil {
		return true
	}
	return days[wd]
}

// DatesForRange lists the last `days` calendar days up to now, most recent
// first, keeping only the platform's update days.
func DatesForRange(p Platform, days int, now time.Time) []time.Time {
	if days <= 0 {
		return nil
	}
	today := domain.Day(now)
	out := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, -i)
		if p.PublishesOn(d.Weekday()) {
			out = append(out, d)
		}
	}
	return out
}
