package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-desk/internal/models"
)

// feed builds 3-hourly samples starting at start for n entries.
func feed(start time.Time, n int) []models.ForecastSample {
	out := make([]models.ForecastSample, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * 3 * time.Hour)
		out = append(out, models.ForecastSample{
			Time:        ts,
			Temperature: float64(ts.Hour()),
			Description: "light rain",
			Icon:        "10d",
			ConditionID: 500,
		})
	}
	return out
}

func TestBucket_FiveDayFeed(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	// Six days of 3-hour entries starting at 09:00 today; the sixth future day is cut.
	samples := feed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 48)

	got := Bucket(samples, now, time.UTC)

	require.Len(t, got, 5)
	wantDates := []string{"2026-03-11", "2026-03-12", "2026-03-13", "2026-03-14", "2026-03-15"}
	for i, d := range got {
		assert.Equal(t, wantDates[i], d.Date)
		assert.Equal(t, 12, d.Time.Hour(), "entry %d should be the noon sample", i)
		assert.Equal(t, float64(12), d.Temperature)
		assert.Equal(t, "Light Rain", d.Description)
		assert.Equal(t, "https://openweathermap.org/img/wn/10d@2x.png", d.IconURL)
	}
	assert.Equal(t, "Wednesday", got[0].Day)
}

func TestBucket_ExcludesToday(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC)
	samples := feed(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 8)

	got := Bucket(samples, now, time.UTC)

	assert.Empty(t, got, "all samples fall on the current day")
}

func TestBucket_ExcludesPastDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	samples := feed(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), 24)

	got := Bucket(samples, now, time.UTC)

	require.Len(t, got, 1)
	assert.Equal(t, "2026-03-11", got[0].Date)
}

func TestBucket_AtMostFiveDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	samples := feed(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), 8*7)

	got := Bucket(samples, now, time.UTC)

	require.Len(t, got, MaxDays)
	assert.Equal(t, "2026-03-11", got[0].Date)
	assert.Equal(t, "2026-03-15", got[4].Date)
}

func TestBucket_NearestNoonWithoutExactNoon(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	day := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	samples := []models.ForecastSample{
		{Time: day.Add(7 * time.Hour), Temperature: 7},
		{Time: day.Add(13 * time.Hour), Temperature: 13},
		{Time: day.Add(16 * time.Hour), Temperature: 16},
	}

	got := Bucket(samples, now, time.UTC)

	require.Len(t, got, 1)
	assert.Equal(t, float64(13), got[0].Temperature)
}

func TestBucket_TieKeepsEarlierSample(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	day := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	// Out of order on purpose: 13:30 and 10:30 are both 90 minutes from noon.
	samples := []models.ForecastSample{
		{Time: day.Add(13*time.Hour + 30*time.Minute), Temperature: 2},
		{Time: day.Add(10*time.Hour + 30*time.Minute), Temperature: 1},
	}

	got := Bucket(samples, now, time.UTC)

	require.Len(t, got, 1)
	assert.Equal(t, float64(1), got[0].Temperature)
}

func TestBucket_UsesCityOffset(t *testing.T) {
	manila := time.FixedZone("UTC+8", 8*60*60)
	// 23:00 UTC on the 10th is 07:00 on the 11th in Manila.
	now := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	samples := []models.ForecastSample{
		{Time: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), Temperature: 1}, // 08:00 on the 11th local: today
		{Time: time.Date(2026, 3, 12, 3, 0, 0, 0, time.UTC), Temperature: 2}, // 11:00 on the 12th local
		{Time: time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC), Temperature: 3}, // 17:00 on the 12th local
	}

	got := Bucket(samples, now, manila)

	require.Len(t, got, 1)
	assert.Equal(t, "2026-03-12", got[0].Date)
	assert.Equal(t, float64(2), got[0].Temperature)
}

func TestBucket_Empty(t *testing.T) {
	got := Bucket(nil, time.Now(), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUpcoming_DropsDaysReachedSinceBucketing(t *testing.T) {
	built := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	daily := Bucket(feed(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), 24), built, time.UTC)
	require.Len(t, daily, 3)

	got := Upcoming(daily, built.Add(2*time.Hour), time.UTC)

	require.Len(t, got, 2)
	assert.Equal(t, "2026-03-12", got[0].Date)
	assert.Len(t, Upcoming(daily, built, time.UTC), 3, "nothing to drop before midnight")
}

// TestUpcoming_UsesCityOffset verifies midnight is judged in the city's zone, not UTC.
func TestUpcoming_UsesCityOffset(t *testing.T) {
	manila := time.FixedZone("Manila", 8*3600)
	daily := []models.DailyForecast{{Date: "2026-03-11"}, {Date: "2026-03-12"}}

	// 17:00 UTC on the 10th is 01:00 on the 11th in Manila.
	now := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	got := Upcoming(daily, now, manila)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-03-12", got[0].Date)

	assert.Len(t, Upcoming(daily, now, nil), 2)
	assert.Empty(t, Upcoming(nil, now, nil))
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"light rain":         "Light Rain",
		"OVERCAST CLOUDS":    "Overcast Clouds",
		"":                   "",
		"few clouds: 11-25%": "Few Clouds: 11-25%",
	}
	for in, want := range tests {
		assert.Equal(t, want, TitleCase(in), "TitleCase(%q)", in)
	}
}
