package forecast

import "github.com/kjstillabower/weather-desk/internal/models"

// Theme categories.
const (
	CategoryThunderstorm = "thunderstorm"
	CategoryRain         = "rain"
	CategorySnow         = "snow"
	CategoryAtmosphere   = "atmosphere"
	CategoryClear        = "clear"
	CategoryClouds       = "clouds"
	CategoryUnknown      = "unknown"
)

// Theme maps an OpenWeather condition id to a display category.
// Drizzle (3xx) and rain (5xx) share the rain category.
func Theme(conditionID int) models.Theme {
	switch {
	case conditionID >= 200 && conditionID < 300:
		return models.Theme{Category: CategoryThunderstorm, Label: "🌩️ Thunderstorm"}
	case conditionID >= 300 && conditionID < 600:
		return models.Theme{Category: CategoryRain, Label: "🌧️ Rainy"}
	case conditionID >= 600 && conditionID < 700:
		return models.Theme{Category: CategorySnow, Label: "❄️ Snowy"}
	case conditionID >= 700 && conditionID < 800:
		return models.Theme{Category: CategoryAtmosphere, Label: "🌫️ Hazy"}
	case conditionID == 800:
		return models.Theme{Category: CategoryClear, Label: "☀️ Clear Sky"}
	case conditionID > 800 && conditionID < 900:
		return models.Theme{Category: CategoryClouds, Label: "☁️ Cloudy"}
	default:
		return models.Theme{Category: CategoryUnknown, Label: "Unknown"}
	}
}

// UnitSymbols returns the temperature and wind speed suffixes for a unit system.
func UnitSymbols(units string) (temp, wind string) {
	switch units {
	case "imperial":
		return "°F", "mph"
	case "standard":
		return "K", "m/s"
	default:
		return "°C", "m/s"
	}
}
