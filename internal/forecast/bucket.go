// Package forecast collapses the 3-hour forecast feed into one entry per day.
package forecast

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/kjstillabower/weather-desk/internal/models"
)

// MaxDays is the maximum number of daily entries returned by Bucket.
const MaxDays = 5

const noon = 12 * time.Hour

// Bucket picks, for every calendar day after now's day, the sample nearest 12:00.
// Days are computed in loc (nil means UTC). Ties keep the earlier sample.
// The result is ordered by date and holds at most MaxDays entries.
func Bucket(samples []models.ForecastSample, now time.Time, loc *time.Location) []models.DailyForecast {
	if loc == nil {
		loc = time.UTC
	}
	today := dayStart(now.In(loc))

	best := make(map[time.Time]models.ForecastSample)
	for _, s := range samples {
		local := s.Time.In(loc)
		day := dayStart(local)
		if !day.After(today) {
			continue
		}
		cur, ok := best[day]
		if !ok {
			best[day] = s
			continue
		}
		d, curD := distanceFromNoon(local), distanceFromNoon(cur.Time.In(loc))
		if d < curD || (d == curD && s.Time.Before(cur.Time)) {
			best[day] = s
		}
	}

	days := make([]time.Time, 0, len(best))
	for day := range best {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	if len(days) > MaxDays {
		days = days[:MaxDays]
	}

	out := make([]models.DailyForecast, 0, len(days))
	for _, day := range days {
		s := best[day]
		out = append(out, models.DailyForecast{
			Date:        day.Format("2006-01-02"),
			Day:         day.Weekday().String(),
			Time:        s.Time,
			Temperature: s.Temperature,
			Description: TitleCase(s.Description),
			Icon:        s.Icon,
			IconURL:     IconURL(s.Icon),
		})
	}
	return out
}

// Upcoming drops entries dated on or before now's day in loc (nil means UTC).
// daily must be ordered by date, as Bucket returns it.
func Upcoming(daily []models.DailyForecast, now time.Time, loc *time.Location) []models.DailyForecast {
	if loc == nil {
		loc = time.UTC
	}
	today := now.In(loc).Format("2006-01-02")
	i := sort.Search(len(daily), func(i int) bool { return daily[i].Date > today })
	return daily[i:]
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func distanceFromNoon(t time.Time) time.Duration {
	d := t.Sub(dayStart(t)) - noon
	if d < 0 {
		return -d
	}
	return d
}

// TitleCase upper-cases the first letter of every word and lower-cases the rest.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		if unicode.IsLetter(r) {
			if start {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			start = false
			continue
		}
		b.WriteRune(r)
		start = !unicode.IsDigit(r)
	}
	return b.String()
}

// IconURL returns the 2x icon image for an OpenWeather icon code.
func IconURL(icon string) string {
	if icon == "" {
		return ""
	}
	return "https://openweathermap.org/img/wn/" + icon + "@2x.png"
}
