package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nhohoai/study-engine/internal/config"
)

const testSecret = "server-test-secret-with-at-least-32-chars"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// testConfig returns a valid configuration pointing at baseURL with history in memory.
func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "error"},
		Auth:   config.AuthConfig{JWTSecret: testSecret},
		Collaborator: config.CollaboratorConfig{
			BaseURL: baseURL,
			Timeout: 5 * time.Second,
		},
		Study: config.StudyConfig{
			QuestionLimit:    10,
			NewLimit:         6,
			OldTarget:        4,
			MaxAppearPerCard: 12,
			MinGap:           2,
			NumChoices:       4,
			AutoNextMS:       1100,
			TickMS:           50,
		},
		Sessions: config.SessionsConfig{
			IdleTTL:          30 * time.Minute,
			SweepInterval:    time.Minute,
			HistoryRetention: 90 * 24 * time.Hour,
		},
		Telemetry: config.TelemetryConfig{Workers: 2, QueueSize: 16, Timeout: 5 * time.Second},
	}
}

// fakeDeckService emulates the collaborator endpoints used by the engine.
type fakeDeckService struct {
	*httptest.Server

	mu      sync.Mutex
	tokens  []string
	answers atomic.Int32
}

func newFakeDeckService(t *testing.T) *fakeDeckService {
	t.Helper()
	f := &fakeDeckService{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /decks/{deckID}/study/start", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokens = append(f.tokens, r.Header.Get("Authorization"))
		f.mu.Unlock()

		cards := []map[string]any{
			{"id": 1, "term": "run", "meaning": "chạy", "note": ""},
			{"id": 2, "term": "eat", "meaning": "ăn", "note": ""},
			{"id": 3, "term": "sleep", "meaning": "ngủ", "note": ""},
			{"id": 4, "term": "read", "meaning": "đọc", "note": ""},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session": map[string]any{"id": 9},
			"deck":    map[string]any{"title": "Verbs"},
			"cards":   cards,
			"queues":  map[string]any{"due": []int{}, "learning": []int{}, "new": []int{1, 2, 3, 4}},
		})
	})
	mux.HandleFunc("POST /study/answer", func(w http.ResponseWriter, _ *http.Request) {
		f.answers.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeDeckService) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}
