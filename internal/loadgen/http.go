package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
)

// submitEvents fans the events out over cfg.Workers concurrent posters.
func submitEvents(ctx context.Context, cfg *Config, events []Event, stats *Stats) {
	client := &http.Client{Timeout: cfg.Timeout}

	var successful, duplicate, throttled, failed atomic.Int64

	jobs := make(chan Event)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range jobs {
				switch postEvent(ctx, client, cfg.BaseURL, ev) {
				case http.StatusAccepted:
					successful.Add(1)
				case http.StatusOK:
					duplicate.Add(1)
				case http.StatusTooManyRequests:
					throttled.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

feed:
	for _, ev := range events {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- ev:
			stats.EventsSubmitted++
		}
	}
	close(jobs)
	wg.Wait()

	stats.EventsSuccessful = int(successful.Load())
	stats.EventsDuplicate = int(duplicate.Load())
	stats.EventsThrottled = int(throttled.Load())
	stats.EventsFailed = int(failed.Load())
}

// postEvent submits one event and returns the HTTP status, 0 on transport
// failure.
func postEvent(ctx context.Context, client *http.Client, baseURL string, ev Event) int {
	body, err := json.Marshal(ev)
	if err != nil {
		return 0
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		logger.Get().Debug(ctx, "event post failed", logger.Error(err))
		return 0
	}
	defer resp.Body.Close()

	return resp.StatusCode
}

// fetchRankings reads back the top window to confirm the pipeline applied
// the submitted events.
func fetchRankings(ctx context.Context, cfg *Config) (types.Rankings, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/rankings", nil)
	if err != nil {
		return types.Rankings{}, fmt.Errorf("build rankings request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return types.Rankings{}, fmt.Errorf("fetch rankings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Rankings{}, fmt.Errorf("rankings returned status %d", resp.StatusCode)
	}

	var out types.Rankings
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.Rankings{}, fmt.Errorf("decode rankings: %w", err)
	}
	return out, nil
}
