package http

import (
	"context"
	"net/http"
	"time"

	"financeflow/internal/auth"
	"financeflow/internal/log"
)

const readyTimeout = 2 * time.Second

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.budget.Ready(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		ErrorResponse(r, http.StatusServiceUnavailable, CodeUnavailable, "store not reachable").Write(w)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.budget.Summary(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handlePutSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req SummaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpSetup, err)
		return
	}
	sum, err := req.ToSummary()
	if err != nil {
		writeError(w, r, log.OpSetup, err)
		return
	}
	saved, err := s.budget.SaveSummary(r.Context(), userID, sum)
	if err != nil {
		writeError(w, r, log.OpSetup, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req SetupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpSetup, err)
		return
	}
	sum, err := s.budget.SetupMonth(r.Context(), userID, *req.MonthlyCredit, *req.DailyTarget)
	if err != nil {
		writeError(w, r, log.OpSetup, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	ov, err := s.budget.Overview(r.Context(), auth.UserID(r.Context()), month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleMonthDays(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	records, err := s.budget.MonthRecords(r.Context(), auth.UserID(r.Context()), month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date, err := parseDatePath(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	view, err := s.budget.Day(r.Context(), auth.UserID(r.Context()), date)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	date, err := parseDatePath(r)
	if err != nil {
		writeError(w, r, log.OpAction, err)
		return
	}
	var req ActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpAction, err)
		return
	}
	action, err := req.ToAction()
	if err != nil {
		writeError(w, r, log.OpAction, err)
		return
	}
	res, err := s.budget.Apply(r.Context(), userID, date, action)
	if err != nil {
		writeError(w, r, log.OpAction, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
