// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for decoding and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"financeflow/internal/core"
	"financeflow/internal/lifecycle"
	"financeflow/internal/validator"
)

const maxBodyBytes = 64 << 10

var errMalformedBody = errors.New("malformed request body")

// SetupRequest starts a new month.
type SetupRequest struct {
	MonthlyCredit *core.Money `json:"monthlyCredit" validate:"required"`
	DailyTarget   *core.Money `json:"dailyTarget" validate:"required"`
}

// SummaryRequest replaces the whole summary.
type SummaryRequest struct {
	MonthlyCredit *core.Money `json:"monthlyCredit" validate:"required"`
	DailyTarget   *core.Money `json:"dailyTarget" validate:"required"`
	TotalSavings  *core.Money `json:"totalSavings" validate:"required"`
	CurrentMonth  string      `json:"currentMonth" validate:"required,yearmonth"`
}

// ActionRequest is one lifecycle action. Which fields are required depends
// on the kind and is checked by the lifecycle manager.
type ActionRequest struct {
	Kind        string      `json:"kind" validate:"required,max=32"`
	ID          string      `json:"id" validate:"max=128"`
	Description string      `json:"description"`
	Amount      *core.Money `json:"amount"`
	Text        string      `json:"text"`
}

// decodeJSON reads a single JSON object into dst and validates it. Unknown
// fields and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %w", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", errMalformedBody)
	}
	return validator.Struct(dst)
}

// ToSummary converts the request into a domain summary.
func (req SummaryRequest) ToSummary() (core.FinanceSummary, error) {
	month, err := core.ParseMonth(req.CurrentMonth)
	if err != nil {
		return core.FinanceSummary{}, err
	}
	return core.FinanceSummary{
		MonthlyCredit: *req.MonthlyCredit,
		DailyTarget:   *req.DailyTarget,
		TotalSavings:  *req.TotalSavings,
		CurrentMonth:  month,
	}, nil
}

// ToAction converts the request into a lifecycle action.
func (req ActionRequest) ToAction() (lifecycle.Action, error) {
	kind := lifecycle.Kind(strings.TrimSpace(req.Kind))
	if !kind.Valid() {
		return lifecycle.Action{}, fmt.Errorf("%w: %q", lifecycle.ErrUnknownAction, req.Kind)
	}
	return lifecycle.Action{
		Kind:        kind,
		ID:          strings.TrimSpace(req.ID),
		Description: sanitizeInput(req.Description),
		Amount:      core.MoneyOrZero(req.Amount),
		Text:        sanitizeInput(req.Text),
	}, nil
}

// parseMonthQuery reads the optional ?month=YYYY-MM parameter. An absent
// parameter yields the zero month.
func parseMonthQuery(r *http.Request) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.Month{}, nil
	}
	return core.ParseMonth(v)
}

// parseDatePath reads the {date} path segment.
func parseDatePath(r *http.Request) (core.Date, error) {
	return core.ParseDate(strings.TrimSpace(r.PathValue("date")))
}
