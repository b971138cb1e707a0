package models

import "time"

// CurrentWeather is the current-conditions view of a city.
type CurrentWeather struct {
	City        string    `json:"city"`
	Country     string    `json:"country"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	IconURL     string    `json:"iconUrl"`
	ConditionID int       `json:"conditionId"`
	Theme       Theme     `json:"theme"`
	Units       string    `json:"units"`
	Timestamp   time.Time `json:"timestamp"`
}

// Theme classifies an OpenWeather condition id for display.
type Theme struct {
	Category string `json:"category"`
	Label    string `json:"label"`
}

// ForecastSample is one 3-hour entry of the 5-day forecast feed.
type ForecastSample struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	ConditionID int       `json:"conditionId"`
}

// DailyForecast is the representative sample chosen for one calendar day.
type DailyForecast struct {
	Date        string    `json:"date"` // YYYY-MM-DD in the city's offset
	Day         string    `json:"day"`
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	IconURL     string    `json:"iconUrl"`
}

// Report combines current conditions and the daily forecast for one city and unit system.
type Report struct {
	City      string          `json:"city"`
	Units     string          `json:"units"`
	Current   CurrentWeather  `json:"current"`
	Daily     []DailyForecast `json:"daily"`
	Timestamp time.Time       `json:"timestamp"`
	UTCOffset int             `json:"utcOffset"`       // city offset in seconds east of UTC
	Stale     bool            `json:"stale,omitempty"` // Indicates data served from stale cache
}
