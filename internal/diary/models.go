package diary

import (
	"time"

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/weather"
)

// Entry is one diary record. Weather fields are copied from the day's
// snapshot when the entry is created and never follow later changes to it.
type Entry struct {
	ID          string            `json:"id"`
	Date        common.Date       `json:"date"`
	Text        string            `json:"text"`
	Weather     weather.Condition `json:"weather"`
	Icon        string            `json:"icon"`
	Temperature float64           `json:"temperature"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// NewEntry builds an entry for date carrying a copy of snap's weather.
func NewEntry(date common.Date, text string, snap weather.Snapshot) Entry {
	return Entry{
		Date:        date,
		Text:        text,
		Weather:     snap.Condition,
		Icon:        snap.Icon,
		Temperature: snap.Temperature,
		CreatedAt:   time.Now().UTC(),
	}
}
