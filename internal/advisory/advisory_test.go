package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/navid-fn/compass/internal/models"
)

func f(v float64) *float64 { return &v }

func TestDecisionValidate(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		wantErr  bool
	}{
		{
			name:     "wait needs nothing else",
			decision: Decision{Action: models.ActionWait, Confidence: 10},
			wantErr:  false,
		},
		{
			name: "valid long",
			decision: Decision{
				Action: models.ActionLong, Confidence: 80,
				EntryPrice: 100, StopLoss: f(95), TakeProfit: f(115),
			},
			wantErr: false,
		},
		{
			name: "valid short",
			decision: Decision{
				Action: models.ActionShort, Confidence: 60,
				EntryPrice: 100, StopLoss: f(105), TakeProfit: f(85),
			},
			wantErr: false,
		},
		{
			name:     "unknown action",
			decision: Decision{Action: "HOLD"},
			wantErr:  true,
		},
		{
			name:     "confidence out of range",
			decision: Decision{Action: models.ActionWait, Confidence: 120},
			wantErr:  true,
		},
		{
			name:     "long without entry price",
			decision: Decision{Action: models.ActionLong, Confidence: 50},
			wantErr:  true,
		},
		{
			name: "long with inverted levels",
			decision: Decision{
				Action: models.ActionLong, Confidence: 50,
				EntryPrice: 100, StopLoss: f(110), TakeProfit: f(120),
			},
			wantErr: true,
		},
		{
			name: "short with inverted levels",
			decision: Decision{
				Action: models.ActionShort, Confidence: 50,
				EntryPrice: 100, StopLoss: f(90), TakeProfit: f(80),
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decision.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAdvisory) {
				t.Errorf("Validation errors must wrap ErrInvalidAdvisory, got %v", err)
			}
		})
	}
}

func TestActionable(t *testing.T) {
	if (&Decision{Action: models.ActionWait}).Actionable() {
		t.Error("WAIT must not be actionable")
	}
	if !(&Decision{Action: models.ActionLong}).Actionable() {
		t.Error("LONG must be actionable")
	}
	if !(&Decision{Action: models.ActionShort}).Actionable() {
		t.Error("SHORT must be actionable")
	}
}

func testSnapshot() *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{Symbol: "BTCUSDT", Interval: "240", Price: 50000}
}

func TestHTTPAdvisorParsesDecision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/advise" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var req adviseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Symbol != "BTCUSDT" {
			t.Errorf("Request symbol = %s, want BTCUSDT", req.Symbol)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"action":      "LONG",
			"confidence":  82.5,
			"entry_price": 50100.0,
			"stop_loss":   49000.0,
			"take_profit": 53000.0,
			"risk_level":  "MEDIUM",
		})
	}))
	defer server.Close()

	advisor := NewHTTPAdvisor(server.URL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	decision, err := advisor.Advise(context.Background(), testSnapshot(), nil)
	if err != nil {
		t.Fatalf("Advise returned error: %v", err)
	}
	if decision.Action != models.ActionLong {
		t.Errorf("Action = %s, want LONG", decision.Action)
	}
	if decision.Confidence != 82.5 {
		t.Errorf("Confidence = %v, want 82.5", decision.Confidence)
	}
	if len(decision.Raw) == 0 {
		t.Error("Expected the raw response body retained")
	}
}

func TestHTTPAdvisorRejectsInvalidDecision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"action": "HOLD"})
	}))
	defer server.Close()

	advisor := NewHTTPAdvisor(server.URL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := advisor.Advise(context.Background(), testSnapshot(), nil)
	if !errors.Is(err, ErrInvalidAdvisory) {
		t.Errorf("Expected ErrInvalidAdvisory, got %v", err)
	}
}

func TestHTTPAdvisorNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	advisor := NewHTTPAdvisor(server.URL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := advisor.Advise(context.Background(), testSnapshot(), nil); err == nil {
		t.Error("Expected an error on a 503 response")
	}
}
