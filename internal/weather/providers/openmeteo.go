package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/weather-diary/internal/weather"
)

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs no API key but only works for locations with coordinates.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	up      *upstream
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		up:      newUpstream("openmeteo", client),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	lat, lon, ok := loc.Coords()
	if !ok {
		return weather.Reading{}, fmt.Errorf("openmeteo requires latitude and longitude")
	}

	values := url.Values{}
	values.Set("latitude", formatCoord(lat))
	values.Set("longitude", formatCoord(lon))
	values.Set("current_weather", "true")
	values.Set("timezone", "UTC")

	var payload struct {
		CurrentWeather struct {
			Temperature float64 `json:"temperature"`
			Time        string  `json:"time"`
			WeatherCode int     `json:"weathercode"`
			IsDay       int     `json:"is_day"`
		} `json:"current_weather"`
	}
	if err := p.up.getJSON(ctx, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return weather.Reading{}, fmt.Errorf("openmeteo: %w", err)
	}

	// Open-Meteo reports local ISO timestamps without seconds or zone.
	ts, err := time.Parse("2006-01-02T15:04", payload.CurrentWeather.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	cond := mapOpenMeteoCondition(payload.CurrentWeather.WeatherCode)
	return weather.Reading{
		Provider:     p.name,
		Timestamp:    ts.UTC(),
		TemperatureC: payload.CurrentWeather.Temperature,
		Condition:    cond,
		Icon:         weather.IconFor(cond, payload.CurrentWeather.IsDay == 1),
	}, nil
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on WMO weather interpretation codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}
