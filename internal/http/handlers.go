package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/services"

	"github.com/go-chi/chi/v5"
)

type monthlyTotalResponse struct {
	Total        float64       `json:"total"`
	Currency     core.Currency `json:"currency"`
	ExchangeRate float64       `json:"exchangeRate"`
	Count        int           `json:"count"`
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks the database is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{"database": "ok"}

	if s.pinger == nil {
		checks["database"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.pinger.Ping(ctx); err != nil {
		checks["database"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	subs, err := s.svc.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, log.OpList, "", err)
		return
	}
	if subs == nil {
		subs = []core.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleMonthlyTotal(w http.ResponseWriter, r *http.Request) {
	subs, err := s.svc.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, log.OpTotal, "", err)
		return
	}

	total := core.MonthlyTotal(subs, s.exchangeRate)
	writeJSON(w, http.StatusOK, monthlyTotalResponse{
		Total:        total.InexactFloat64(),
		Currency:     core.ReportingCurrency,
		ExchangeRate: s.exchangeRate,
		Count:        len(subs),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, id, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeSubscriptionInput(r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	created, err := s.svc.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, log.OpCreate, "", err)
		return
	}

	s.structured.LogSubscriptionChange(r.Context(), log.OpCreate,
		created.ID, created.Name, string(created.Currency), string(created.Frequency))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	in, err := decodeSubscriptionInput(r)
	if err != nil {
		// A missing id wins over a malformed body.
		if _, getErr := s.svc.Get(r.Context(), id); getErr != nil {
			s.writeServiceError(w, r, log.OpUpdate, id, getErr)
			return
		}
		writeDecodeError(w, err)
		return
	}

	updated, err := s.svc.Update(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, log.OpUpdate, id, err)
		return
	}

	s.structured.LogSubscriptionChange(r.Context(), log.OpUpdate,
		updated.ID, updated.Name, string(updated.Currency), string(updated.Frequency))
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.svc.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, log.OpDelete, id, err)
		return
	}

	s.structured.LogSubscriptionChange(r.Context(), log.OpDelete, id, "", "", "")
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps service errors to status codes. Storage failures
// pass their message through unchanged.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op, id string, err error) {
	fields := log.NewFields().WithSubscriptionID(id)

	switch {
	case services.IsValidation(err):
		s.structured.LogError(r.Context(), "Rejected subscription input", err, log.ErrorTypeValidation, op, fields)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.structured.LogError(r.Context(), "Subscription not found", err, log.ErrorTypeNotFound, op, fields)
		writeError(w, http.StatusNotFound, services.ErrNotFound.Error())
	default:
		s.structured.LogError(r.Context(), "Subscription operation failed", err, log.ErrorTypeDatabase, op, fields)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
