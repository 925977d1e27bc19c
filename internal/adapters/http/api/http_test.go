package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/ladder/internal/adapters/http/api"
	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
)

// mockDeps implements api.Dependencies and api.StatsProvider.
type mockDeps struct {
	rankings       types.Rankings
	rankingsErr    error
	filtered       types.Rankings
	filteredFilter model.Filter
	comparison     types.RivalComparison
	comparisonErr  error
	submitErr      error

	updatedUserID   int64
	updatedNewTotal int64
	submitted       []model.PointEvent
}

func (m *mockDeps) GetTopRankings(ctx context.Context, uid *int64) (types.Rankings, error) {
	return m.rankings, m.rankingsErr
}

func (m *mockDeps) GetFilteredRankings(ctx context.Context, f model.Filter, uid *int64) (types.Rankings, error) {
	m.filteredFilter = f
	return m.filtered, nil
}

func (m *mockDeps) CompareRival(ctx context.Context, userID int64) (types.RivalComparison, error) {
	return m.comparison, m.comparisonErr
}

func (m *mockDeps) UpdateScore(ctx context.Context, userID, newTotal int64) {
	m.updatedUserID = userID
	m.updatedNewTotal = newTotal
}

func (m *mockDeps) SubmitPointEvent(ctx context.Context, ev model.PointEvent) error {
	if m.submitErr != nil {
		return m.submitErr
	}
	m.submitted = append(m.submitted, ev)
	return nil
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestServer(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return mux
}

func TestGetRankings(t *testing.T) {
	deps := &mockDeps{
		rankings: types.Rankings{
			Top3:     []types.Entry{{Rank: 1, UserID: 2, MaskedName: "B***", TotalPoint: 800}},
			Rankings: []types.Entry{{Rank: 1, UserID: 2, MaskedName: "B***", TotalPoint: 800}},
		},
	}
	mux := newTestServer(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rankings?user_id=2", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out types.Rankings
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Rankings) != 1 || out.Rankings[0].MaskedName != "B***" {
		t.Errorf("unexpected body: %+v", out)
	}
}

func TestGetRankings_BadUserID(t *testing.T) {
	mux := newTestServer(&mockDeps{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rankings?user_id=abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetRankings_MethodNotAllowed(t *testing.T) {
	mux := newTestServer(&mockDeps{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rankings", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetFilteredRankings(t *testing.T) {
	deps := &mockDeps{
		filtered: types.Rankings{Rankings: []types.Entry{{Rank: 1, UserID: 3}}},
	}
	mux := newTestServer(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rankings/filtered?gender=F&age_bucket=20", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if deps.filteredFilter.Gender != "F" || deps.filteredFilter.AgeBucket != 20 {
		t.Errorf("filter not forwarded: %+v", deps.filteredFilter)
	}
}

func TestGetFilteredRankings_BadBucket(t *testing.T) {
	mux := newTestServer(&mockDeps{})

	for _, bucket := range []string{"25", "-10", "abc"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rankings/filtered?age_bucket="+bucket, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("bucket %q: expected 400, got %d", bucket, rec.Code)
		}
	}
}

func TestGetRival(t *testing.T) {
	deps := &mockDeps{
		comparison: types.RivalComparison{
			HasRival: true,
			PointGap: 150,
			Message:  "You're 150 points ahead of your rival!",
		},
	}
	mux := newTestServer(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rival?user_id=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out types.RivalComparison
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.HasRival || out.PointGap != 150 {
		t.Errorf("unexpected body: %+v", out)
	}
}

func TestGetRival_RequiresUserID(t *testing.T) {
	mux := newTestServer(&mockDeps{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rival", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetRival_UnknownUser(t *testing.T) {
	mux := newTestServer(&mockDeps{comparisonErr: service.ErrUserNotFound})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rival?user_id=404", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestPostScore(t *testing.T) {
	deps := &mockDeps{}
	mux := newTestServer(deps)

	body := bytes.NewBufferString(`{"user_id": 7, "new_total": 900}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scores", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if deps.updatedUserID != 7 || deps.updatedNewTotal != 900 {
		t.Errorf("update not forwarded: user=%d total=%d", deps.updatedUserID, deps.updatedNewTotal)
	}
}

func TestPostScore_Invalid(t *testing.T) {
	mux := newTestServer(&mockDeps{})

	cases := []string{
		`{"user_id": 0, "new_total": 10}`,
		`{"user_id": 7, "new_total": -1}`,
		`not json`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scores", bytes.NewBufferString(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestPostEvent(t *testing.T) {
	deps := &mockDeps{}
	mux := newTestServer(deps)

	body := bytes.NewBufferString(`{"event_id": "ev-1", "user_id": 7, "activity": "level_test", "amount": 5, "ts": "2026-09-01T10:00:00Z"}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(deps.submitted) != 1 || deps.submitted[0].EventID != "ev-1" {
		t.Errorf("event not forwarded: %+v", deps.submitted)
	}
	if deps.submitted[0].TS.IsZero() {
		t.Error("timestamp not parsed")
	}
}

func TestPostEvent_Duplicate(t *testing.T) {
	mux := newTestServer(&mockDeps{submitErr: service.ErrDuplicateEvent})

	body := bytes.NewBufferString(`{"event_id": "ev-1", "user_id": 7, "activity": "level_test", "amount": 5}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 duplicate ack, got %d", rec.Code)
	}
	var ack struct {
		Status    string `json:"status"`
		Duplicate bool   `json:"duplicate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ack.Status != "duplicate" || !ack.Duplicate {
		t.Errorf("unexpected ack: %+v", ack)
	}
}

func TestPostEvent_Backpressure(t *testing.T) {
	mux := newTestServer(&mockDeps{submitErr: service.ErrBackpressure})

	body := bytes.NewBufferString(`{"event_id": "ev-1", "user_id": 7, "activity": "level_test", "amount": 5}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", body))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
}

func TestPostEvent_Invalid(t *testing.T) {
	mux := newTestServer(&mockDeps{})

	cases := []string{
		`{"user_id": 7, "activity": "level_test", "amount": 5}`,
		`{"event_id": "ev-1", "activity": "level_test", "amount": 5}`,
		`{"event_id": "ev-1", "user_id": 7, "amount": 5}`,
		`{"event_id": "ev-1", "user_id": 7, "activity": "level_test", "ts": "yesterday"}`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestStats(t *testing.T) {
	mux := newTestServer(&mockDeps{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["started"] != true {
		t.Errorf("unexpected stats: %+v", out)
	}
}

func TestHealthz(t *testing.T) {
	mux := newTestServer(&mockDeps{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
