package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/diary"
	"github.com/i474232898/weather-diary/internal/store"
	"github.com/i474232898/weather-diary/internal/weather"
)

// recordingService is a Service stub that records calls and returns canned results.
type recordingService struct {
	calls   []string
	entries []diary.Entry
	err     error

	lastDate  common.Date
	lastStart common.Date
	lastEnd   common.Date
	lastText  string
}

func (s *recordingService) Create(_ context.Context, date common.Date, text string) (diary.Entry, error) {
	s.calls = append(s.calls, "create")
	s.lastDate, s.lastText = date, text
	return diary.Entry{}, s.err
}

func (s *recordingService) Read(_ context.Context, date common.Date) ([]diary.Entry, error) {
	s.calls = append(s.calls, "read")
	s.lastDate = date
	return s.entries, s.err
}

func (s *recordingService) ReadRange(_ context.Context, start, end common.Date) ([]diary.Entry, error) {
	s.calls = append(s.calls, "readRange")
	s.lastStart, s.lastEnd = start, end
	return s.entries, s.err
}

func (s *recordingService) Update(_ context.Context, date common.Date, text string) error {
	s.calls = append(s.calls, "update")
	s.lastDate, s.lastText = date, text
	return s.err
}

func (s *recordingService) Delete(_ context.Context, date common.Date) (int64, error) {
	s.calls = append(s.calls, "delete")
	s.lastDate = date
	return 0, s.err
}

func do(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	resp.Body.Close()
	return resp, string(b)
}

func diaries(entries ...string) []diary.Entry {
	out := make([]diary.Entry, 0, len(entries)/2)
	for i := 0; i+1 < len(entries); i += 2 {
		out = append(out, diary.Entry{Date: common.MustParseDate(entries[i]), Text: entries[i+1]})
	}
	return out
}

func TestCreateDiary(t *testing.T) {
	svc := &recordingService{}
	app := NewApp(svc, nil)

	resp, body := do(t, app, http.MethodPost, "/create/diary?date=2023-10-20", "Diary text")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", resp.StatusCode, body)
	}
	if body != "" {
		t.Errorf("body = %q, want empty", body)
	}
	if svc.lastDate.String() != "2023-10-20" || svc.lastText != "Diary text" {
		t.Errorf("service got (%s, %q)", svc.lastDate, svc.lastText)
	}
}

func TestReadDiary(t *testing.T) {
	svc := &recordingService{entries: diaries(
		"2023-10-20", "1",
		"2023-10-20", "2",
		"2023-10-20", "3",
	)}
	app := NewApp(svc, nil)

	resp, body := do(t, app, http.MethodGet, "/read/diary?date=2023-10-20", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	var got []struct {
		Date string `json:"date"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decoding %s: %v", body, err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got[i].Date != "2023-10-20" || got[i].Text != want {
			t.Errorf("[%d] = %+v", i, got[i])
		}
	}
	if len(svc.calls) != 1 || svc.calls[0] != "read" {
		t.Errorf("calls = %v, want [read]", svc.calls)
	}
}

func TestReadDiaries(t *testing.T) {
	svc := &recordingService{entries: diaries(
		"2023-10-20", "1",
		"2023-10-25", "2",
		"2023-10-30", "3",
	)}
	app := NewApp(svc, nil)

	resp, body := do(t, app, http.MethodGet, "/read/diaries?startDate=2023-10-23&endDate=2023-10-30", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", resp.StatusCode, body)
	}
	if svc.lastStart.String() != "2023-10-23" || svc.lastEnd.String() != "2023-10-30" {
		t.Errorf("service got range %s..%s", svc.lastStart, svc.lastEnd)
	}

	var got []map[string]any
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decoding %s: %v", body, err)
	}
	if len(got) != 3 || got[1]["date"] != "2023-10-25" || got[2]["text"] != "3" {
		t.Errorf("body = %s", body)
	}
}

func TestUpdateDiary(t *testing.T) {
	svc := &recordingService{}
	app := NewApp(svc, nil)

	resp, _ := do(t, app, http.MethodPut, "/update/diary?date=2023-10-20", "Updated Diary Text")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if svc.lastText != "Updated Diary Text" || svc.lastDate.String() != "2023-10-20" {
		t.Errorf("service got (%s, %q)", svc.lastDate, svc.lastText)
	}
}

func TestDeleteDiary(t *testing.T) {
	svc := &recordingService{}
	app := NewApp(svc, nil)

	resp, _ := do(t, app, http.MethodDelete, "/delete/diary?date=2023-10-23", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if svc.lastDate.String() != "2023-10-23" {
		t.Errorf("service got %s", svc.lastDate)
	}
}

// TestDateValidation verifies malformed dates are rejected before reaching the service.
func TestDateValidation(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
	}{
		{"missing date", http.MethodGet, "/read/diary"},
		{"slashes", http.MethodGet, "/read/diary?date=2023/10/20"},
		{"impossible day", http.MethodPost, "/create/diary?date=2023-02-30"},
		{"timestamp", http.MethodPut, "/update/diary?date=2023-10-20T10:00:00Z"},
		{"garbage", http.MethodDelete, "/delete/diary?date=yesterday"},
		{"missing endDate", http.MethodGet, "/read/diaries?startDate=2023-10-23"},
		{"bad startDate", http.MethodGet, "/read/diaries?startDate=23-10-2023&endDate=2023-10-30"},
		{"inverted range", http.MethodGet, "/read/diaries?startDate=2023-10-30&endDate=2023-10-23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &recordingService{}
			app := NewApp(svc, nil)

			resp, body := do(t, app, tt.method, tt.target, "text")
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", resp.StatusCode, body)
			}
			if !strings.Contains(body, `"error":true`) {
				t.Errorf("body = %s, want error envelope", body)
			}
			if len(svc.calls) != 0 {
				t.Errorf("service was called: %v", svc.calls)
			}
		})
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		method string
		target string
		want   int
	}{
		{"not found", diary.ErrNotFound, http.MethodPut, "/update/diary?date=2023-10-20", http.StatusNotFound},
		{"weather unavailable", diary.ErrWeatherUnavailable, http.MethodPost, "/create/diary?date=2023-10-20", http.StatusServiceUnavailable},
		{"invalid range", diary.ErrInvalidRange, http.MethodGet, "/read/diaries?startDate=2023-10-20&endDate=2023-10-21", http.StatusBadRequest},
		{"unexpected", errors.New("disk on fire"), http.MethodGet, "/read/diary?date=2023-10-20", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := NewApp(&recordingService{err: tt.err}, nil)
			resp, body := do(t, app, tt.method, tt.target, "x")
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d; body = %s", resp.StatusCode, tt.want, body)
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(body, "disk on fire") {
				t.Errorf("internal error leaked: %s", body)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	app := NewApp(&recordingService{}, nil)
	resp, body := do(t, app, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("health = %d %s", resp.StatusCode, body)
	}
}

// TestDiaryLifecycle drives the real service over the memory store end to end.
func TestDiaryLifecycle(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := context.Background()
	for _, d := range []string{"2023-10-20", "2023-10-25", "2023-10-30"} {
		snap := weather.Snapshot{Date: common.MustParseDate(d), Condition: weather.ConditionClear, Icon: "01d", Temperature: 20}
		if err := mem.UpsertWeather(ctx, snap); err != nil {
			t.Fatal(err)
		}
	}
	app := NewApp(diary.NewService(mem, mem), nil)

	for _, d := range []string{"2023-10-20", "2023-10-25", "2023-10-30"} {
		if resp, body := do(t, app, http.MethodPost, "/create/diary?date="+d, "entry "+d); resp.StatusCode != http.StatusOK {
			t.Fatalf("create %s = %d %s", d, resp.StatusCode, body)
		}
	}

	_, body := do(t, app, http.MethodGet, "/read/diaries?startDate=2023-10-23&endDate=2023-10-30", "")
	var ranged []diary.Entry
	if err := json.Unmarshal([]byte(body), &ranged); err != nil {
		t.Fatalf("decoding %s: %v", body, err)
	}
	if len(ranged) != 2 || ranged[0].Date.String() != "2023-10-25" || ranged[1].Date.String() != "2023-10-30" {
		t.Fatalf("range = %s", body)
	}
	if ranged[0].Weather != weather.ConditionClear || ranged[0].Icon != "01d" {
		t.Errorf("weather fields missing: %s", body)
	}

	if resp, _ := do(t, app, http.MethodPut, "/update/diary?date=2023-10-20", "Updated Diary Text"); resp.StatusCode != http.StatusOK {
		t.Fatalf("update = %d", resp.StatusCode)
	}
	_, body = do(t, app, http.MethodGet, "/read/diary?date=2023-10-20", "")
	if !strings.Contains(body, `"text":"Updated Diary Text"`) {
		t.Errorf("after update = %s", body)
	}

	if resp, _ := do(t, app, http.MethodDelete, "/delete/diary?date=2023-10-20", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete = %d", resp.StatusCode)
	}
	_, body = do(t, app, http.MethodGet, "/read/diary?date=2023-10-20", "")
	if strings.TrimSpace(body) != "[]" {
		t.Errorf("after delete = %s, want []", body)
	}

	if resp, _ := do(t, app, http.MethodPut, "/update/diary?date=2023-10-20", "gone"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("update after delete = %d, want 404", resp.StatusCode)
	}
	if resp, _ := do(t, app, http.MethodPost, "/create/diary?date=2024-01-01", "no weather"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("create without weather = %d, want 503", resp.StatusCode)
	}
}
