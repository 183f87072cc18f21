package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
)

func TestBackoffDoublesUntilCap(t *testing.T) {
	prev := exponentialBackoff(0)
	if prev != time.Second {
		t.Fatalf("first retry waits %v, want 1s", prev)
	}
	for attempt := 1; attempt < 12; attempt++ {
		d := exponentialBackoff(attempt)
		want := min(2*prev, maxBackoff)
		if d != want {
			t.Fatalf("attempt %d waits %v, want %v", attempt, d, want)
		}
		prev = d
	}
	if exponentialBackoff(64) != maxBackoff {
		t.Fatal("large attempts must not overflow the shift")
	}
}

func TestIsConnectionError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{amqp091.ErrClosed, true},
		{fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("read: unexpected EOF"), true},
		{errors.New("write: broken pipe"), true},
		{errors.New("invalid budget event"), false},
	}
	for _, tc := range cases {
		if got := isConnectionError(tc.err); got != tc.want {
			t.Errorf("isConnectionError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestCircuitBreakerStates(t *testing.T) {
	c := &Client{}
	state := func() int32 { return atomic.LoadInt32(&c.state) }

	for i := 1; i < maxFailures; i++ {
		c.recordFailure()
	}
	if c.isCircuitOpen() {
		t.Fatalf("circuit opened after %d failures", maxFailures-1)
	}
	c.recordFailure()
	if !c.isCircuitOpen() || state() != StateOpen {
		t.Fatal("circuit should open at the failure threshold")
	}

	c.mu.Lock()
	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	c.mu.Unlock()
	if c.isCircuitOpen() || state() != StateHalfOpen {
		t.Fatalf("expired open circuit should go half-open, state %d", state())
	}

	c.recordSuccess()
	if state() != StateClosed || atomic.LoadInt64(&c.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset the count")
	}
}

func TestPublishFailsFastWithoutBroker(t *testing.T) {
	msg := NewBudgetEventMessage("user-1", "2024-01-02", "borrow", -20000)

	open := &Client{state: StateOpen, lastFailure: time.Now()}
	if err := open.PublishBudgetEvent(context.Background(), msg); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open circuit: err = %v, want ErrCircuitOpen", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&Client{}).PublishBudgetEvent(ctx, msg); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled context: err = %v, want context.Canceled", err)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	client := &Client{}
	atomic.StoreInt32(&client.state, StateHalfOpen)
	client.recordFailure()
	if atomic.LoadInt32(&client.state) != StateOpen {
		t.Fatalf("a failure while half-open should reopen the circuit")
	}
}

func TestNewBudgetEventMessage(t *testing.T) {
	msg := NewBudgetEventMessage("user-1", "2024-01-02", "transfer_to_savings", 2500)

	if msg.UserID != "user-1" || msg.Date != "2024-01-02" || msg.Action != "transfer_to_savings" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.SavingsDeltaCents != 2500 {
		t.Errorf("SavingsDeltaCents = %d, want 2500", msg.SavingsDeltaCents)
	}
	if msg.Timestamp.IsZero() || time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestBudgetEventMessage_JSON(t *testing.T) {
	msg := &BudgetEventMessage{
		UserID:            "user-1",
		Date:              "2024-01-02",
		Action:            "borrow",
		SavingsDeltaCents: -20000,
		Warnings:          []string{"above_available_savings"},
		Timestamp:         time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := BudgetEventMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("BudgetEventMessageFromJSON() error = %v", err)
	}
	if parsed.UserID != msg.UserID || parsed.SavingsDeltaCents != msg.SavingsDeltaCents || len(parsed.Warnings) != 1 {
		t.Errorf("parsed = %+v, want %+v", parsed, msg)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestBudgetEventMessage_InvalidJSON(t *testing.T) {
	for _, body := range []string{
		`{"userId": 42, "action": "borrow"}`,
		`{"userId": "u1"}`,
		`not json`,
	} {
		if _, err := BudgetEventMessageFromJSON([]byte(body)); err == nil {
			t.Errorf("BudgetEventMessageFromJSON(%s) should fail", body)
		}
	}
}
