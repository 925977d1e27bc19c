package loadgen

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// activities mirror the weights the service ships by default; the mix leans
// toward the cheap frequent ones.
var activities = []struct {
	name   string
	weight int // selection weight, not point weight
	maxAmt float64
}{
	{"study_session", 6, 4},
	{"level_test", 2, 10},
	{"payment", 2, 50},
}

// generateEvents produces NumEvents random point events spread over a
// population of NumUsers ids.
func generateEvents(cfg *Config, stats *Stats) []Event {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	totalWeight := 0
	for _, a := range activities {
		totalWeight += a.weight
	}

	events := make([]Event, cfg.NumEvents)
	for i := range events {
		pick := rng.Intn(totalWeight)
		idx := 0
		for j, a := range activities {
			if pick < a.weight {
				idx = j
				break
			}
			pick -= a.weight
		}
		act := activities[idx]

		events[i] = Event{
			EventID:  fmt.Sprintf("load_%s", uuid.NewString()),
			UserID:   int64(rng.Intn(cfg.NumUsers) + 1),
			Activity: act.name,
			Amount:   rng.Float64() * act.maxAmt,
			TS:       time.Now().UTC().Format(time.RFC3339),
		}
	}

	stats.EventsGenerated = len(events)
	return events
}
