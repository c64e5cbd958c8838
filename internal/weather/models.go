package weather

import (
	"time"

	"github.com/i474232898/weather-diary/internal/common"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// iconCodes follows OpenWeatherMap's icon set, the format stored with entries.
var iconCodes = map[Condition]string{
	ConditionClear:  "01",
	ConditionCloudy: "03",
	ConditionRain:   "10",
	ConditionSnow:   "13",
	ConditionStorm:  "11",
	ConditionMist:   "50",
}

// IconFor returns the OpenWeatherMap-style icon code ("01d", "10n", ...) for
// c, or "" for an unknown condition.
func IconFor(c Condition, day bool) string {
	code, ok := iconCodes[c]
	if !ok {
		return ""
	}
	if day {
		return code + "d"
	}
	return code + "n"
}

// Location is the place the diary's weather is observed at.
// Lat/Lon are optional; providers that need coordinates skip locations without them.
type Location struct {
	City    string   `json:"city"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// Coords returns the coordinates, if both are set.
func (l Location) Coords() (lat, lon float64, ok bool) {
	if l.Lat == nil || l.Lon == nil {
		return 0, 0, false
	}
	return *l.Lat, *l.Lon, true
}

// Place is the free-form "city,country" form most APIs accept.
func (l Location) Place() string {
	if l.Country == "" {
		return l.City
	}
	return l.City + "," + l.Country
}

// Snapshot is the weather recorded for one calendar date.
// There is at most one Snapshot per date in the cache store.
type Snapshot struct {
	Date        common.Date `json:"date"`
	Condition   Condition   `json:"weather"`
	Icon        string      `json:"icon"`
	Temperature float64     `json:"temperature"`
}

// Reading is a single provider's normalized observation.
type Reading struct {
	Provider     string
	Timestamp    time.Time
	TemperatureC float64
	Condition    Condition
	Icon         string
}
