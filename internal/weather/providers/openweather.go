package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/weather-diary/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	up      *upstream
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		up:      newUpstream("openweather", client),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("openweather: %w", errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	if lat, lon, ok := loc.Coords(); ok {
		values.Set("lat", formatCoord(lat))
		values.Set("lon", formatCoord(lon))
	} else {
		values.Set("q", loc.Place())
	}

	var payload struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []openWeatherItem `json:"weather"`
	}
	if err := p.up.getJSON(ctx, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return weather.Reading{}, fmt.Errorf("openweather: %w", err)
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	var icon string
	if len(payload.Weather) > 0 {
		icon = payload.Weather[0].Icon
	}

	return weather.Reading{
		Provider:     p.name,
		Timestamp:    ts,
		TemperatureC: payload.Main.Temp,
		Condition:    mapOpenWeatherCondition(payload.Weather),
		Icon:         icon,
	}, nil
}

type openWeatherItem struct {
	Main string `json:"main"`
	Icon string `json:"icon"`
}

func mapOpenWeatherCondition(items []openWeatherItem) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke", "Dust":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
