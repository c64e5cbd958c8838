package weather

import "github.com/i474232898/weather-diary/internal/common"

// AggregateReadings combines provider readings into the snapshot for date.
// Temperature is averaged; the condition is the majority one, ties going to
// whichever condition was seen first. The icon comes from the first reading
// that reported the chosen condition with a non-empty icon.
func AggregateReadings(date common.Date, readings []Reading) Snapshot {
	if len(readings) == 0 {
		return Snapshot{
			Date:      date,
			Condition: ConditionUnknown,
		}
	}

	var sumTemp float64
	counts := make(map[Condition]int)
	order := make([]Condition, 0, len(readings))

	for _, r := range readings {
		sumTemp += r.TemperatureC
		if counts[r.Condition] == 0 {
			order = append(order, r.Condition)
		}
		counts[r.Condition]++
	}

	best := order[0]
	for _, cond := range order[1:] {
		if counts[cond] > counts[best] {
			best = cond
		}
	}

	var icon string
	for _, r := range readings {
		if r.Condition == best && r.Icon != "" {
			icon = r.Icon
			break
		}
	}

	return Snapshot{
		Date:        date,
		Condition:   best,
		Icon:        icon,
		Temperature: sumTemp / float64(len(readings)),
	}
}
