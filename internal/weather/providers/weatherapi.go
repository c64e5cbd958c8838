package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/weather"
)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	up      *upstream
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/current.json",
		up:      newUpstream("weatherapi", client),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("weatherapi: %w", errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	// q takes either "lat,lon" or a place name.
	q := loc.Place()
	if lat, lon, ok := loc.Coords(); ok {
		q = formatCoord(lat) + "," + formatCoord(lon)
	}
	values.Set("q", q)

	var payload struct {
		Current struct {
			LastUpdatedEpoch int64   `json:"last_updated_epoch"`
			TempC            float64 `json:"temp_c"`
			IsDay            int     `json:"is_day"`
			Condition        struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}
	if err := p.up.getJSON(ctx, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return weather.Reading{}, fmt.Errorf("weatherapi: %w", err)
	}

	ts := time.Now().UTC()
	if payload.Current.LastUpdatedEpoch > 0 {
		ts = time.Unix(payload.Current.LastUpdatedEpoch, 0).UTC()
	}

	// Its own icons are CDN paths; store the shared code instead.
	cond := mapWeatherAPICondition(payload.Current.Condition.Text)
	return weather.Reading{
		Provider:     p.name,
		Timestamp:    ts,
		TemperatureC: payload.Current.TempC,
		Condition:    cond,
		Icon:         weather.IconFor(cond, payload.Current.IsDay == 1),
	}, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case common.HasAny(text, "thunder", "storm"):
		return weather.ConditionStorm
	case common.HasAny(text, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.HasAny(text, "snow", "sleet", "blizzard", "ice pellets"):
		return weather.ConditionSnow
	case common.HasAny(text, "mist", "fog"):
		return weather.ConditionMist
	case common.HasAny(text, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.HasAny(text, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
