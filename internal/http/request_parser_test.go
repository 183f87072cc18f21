package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"financeflow/internal/core"
	"financeflow/internal/lifecycle"
	"financeflow/internal/validator"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "bad amount", body: `{"monthlyCredit":"1.234,5","dailyTarget":2}`, wantErr: core.ErrInvalidAmount},
		{name: "numbers", body: `{"monthlyCredit":1000,"dailyTarget":"25.5"}`},
		{name: "not json", body: `monthlyCredit=1`, wantErr: errMalformedBody},
		{name: "required", body: `{"dailyTarget":1}`, wantErr: validator.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst SetupRequest
			err := decodeJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("decodeJSON: %v", err)
				}
				if dst.MonthlyCredit.Cents != 100000 || dst.DailyTarget.Cents != 2550 {
					t.Fatalf("decoded %+v %+v", dst.MonthlyCredit, dst.DailyTarget)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeJSONRejectsLargeBody(t *testing.T) {
	body := `{"kind":"set_notes","text":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dst ActionRequest
	err := decodeJSON(httptest.NewRecorder(), req, &dst)
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("err = %v, want MaxBytesError", err)
	}
}

func TestActionRequestToAction(t *testing.T) {
	amount := core.Cents(500)
	got, err := ActionRequest{
		Kind:        " borrow ",
		Description: "  lunch\x00 ",
		Amount:      &amount,
		Text:        "note\x07",
	}.ToAction()
	if err != nil {
		t.Fatalf("ToAction: %v", err)
	}
	if got.Kind != lifecycle.KindBorrow || got.Description != "lunch" || got.Text != "note" || got.Amount.Cents != 500 {
		t.Fatalf("action = %+v", got)
	}

	if _, err := (ActionRequest{Kind: "nope"}).ToAction(); !errors.Is(err, lifecycle.ErrUnknownAction) {
		t.Fatalf("err = %v, want ErrUnknownAction", err)
	}

	got, err = ActionRequest{Kind: "clear_due"}.ToAction()
	if err != nil || !got.Amount.IsZero() {
		t.Fatalf("missing amount should be zero: %+v, %v", got, err)
	}
}

func TestParseMonthQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?month=2024-02", nil)
	m, err := parseMonthQuery(req)
	if err != nil || m.String() != "2024-02" {
		t.Fatalf("month = %v, %v", m, err)
	}

	m, err = parseMonthQuery(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || !m.IsZero() {
		t.Fatalf("absent month = %v, %v", m, err)
	}

	if _, err := parseMonthQuery(httptest.NewRequest(http.MethodGet, "/?month=02-2024", nil)); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("err = %v, want ErrInvalidMonth", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  hello  ":         "hello",
		"a\x00b\x1fc":       "abc",
		"line1\nline2\tend": "line1\nline2\tend",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
