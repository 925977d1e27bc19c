package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL   string        // Base URL of the service
	NumEvents int           // Number of events to generate
	NumUsers  int           // Size of the simulated user population
	Workers   int           // Number of concurrent submitters
	Timeout   time.Duration // HTTP request timeout
	Verbose   bool          // Enable verbose logging
}

// Event mirrors the wire schema for POST /events.
type Event struct {
	EventID  string  `json:"event_id"`
	UserID   int64   `json:"user_id"`
	Activity string  `json:"activity"`
	Amount   float64 `json:"amount"`
	TS       string  `json:"ts"`
}

// AckResponse is the acknowledgement returned by event submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats accumulates the outcome of a load run.
type Stats struct {
	EventsGenerated  int
	EventsSubmitted  int
	EventsSuccessful int
	EventsDuplicate  int
	EventsThrottled  int
	EventsFailed     int
	WindowEntries    int
	StartTime        time.Time
	Duration         time.Duration
}
