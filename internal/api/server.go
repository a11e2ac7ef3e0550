package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nd-ahl/envive/internal/engine"
	"github.com/nd-ahl/envive/internal/metrics"
	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository"
)

// Server exposes the engine over HTTP for the mobile app.
type Server struct {
	eng     *engine.Engine
	metrics *metrics.Metrics
	logger  *logrus.Logger
	mux     *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(eng *engine.Engine, m *metrics.Metrics, logger *logrus.Logger) *Server {
	s := &Server{eng: eng, metrics: m, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Members, trust, balances
	s.mux.HandleFunc("POST /api/members", s.handleCreateMember)
	s.mux.HandleFunc("GET /api/members/{id}", s.handleGetMember)
	s.mux.HandleFunc("GET /api/members/{id}/trust", s.handleCurrentTrust)
	s.mux.HandleFunc("GET /api/members/{id}/trust/history", s.handleTrustHistory)
	s.mux.HandleFunc("GET /api/members/{id}/balance", s.handleCurrentBalance)
	s.mux.HandleFunc("POST /api/members/{id}/balance/spend", s.handleSpendMinutes)

	// Social penalties
	s.mux.HandleFunc("POST /api/members/{id}/penalty", s.handleApplyPenalty)
	s.mux.HandleFunc("DELETE /api/members/{id}/penalty", s.handleUndoPenalty)

	// Task assignments
	s.mux.HandleFunc("GET /api/assignments", s.handleListAssignments)
	s.mux.HandleFunc("POST /api/assignments", s.handleCreateAssignment)
	s.mux.HandleFunc("PUT /api/assignments/{id}/start", s.handleStart)
	s.mux.HandleFunc("PUT /api/assignments/{id}/submit", s.handleSubmit)
	s.mux.HandleFunc("PUT /api/assignments/{id}/approve", s.handleApprove)
	s.mux.HandleFunc("PUT /api/assignments/{id}/decline", s.handleDecline)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

// respondError maps an engine error onto an HTTP status while preserving its
// kind in the body. An authorization failure must reach the client as a
// distinct error, never as an empty success.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, engine.ErrNotAuthorized):
		status, kind = http.StatusForbidden, "not_authorized"
	case errors.Is(err, engine.ErrInvalidMember):
		status, kind = http.StatusForbidden, "invalid_member"
	case errors.Is(err, engine.ErrInvalidTransition):
		status, kind = http.StatusConflict, "invalid_transition"
	case errors.Is(err, engine.ErrNoPenaltyToUndo):
		status, kind = http.StatusConflict, "no_penalty_to_undo"
	case errors.Is(err, engine.ErrInvalidEvent):
		status, kind = http.StatusBadRequest, "invalid_event"
	case errors.Is(err, engine.ErrInvalidAmount):
		status, kind = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, engine.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, engine.ErrStorage):
		status, kind = http.StatusBadGateway, "storage_failure"
	}
	s.respondJSON(w, status, map[string]string{
		"error":   kind,
		"message": err.Error(),
	})
}

func (s *Server) badRequest(w http.ResponseWriter, message string) {
	s.respondJSON(w, http.StatusBadRequest, map[string]string{
		"error":   "bad_request",
		"message": message,
	})
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// session reads the caller identity headers. Both are required: the engine
// refuses to fall back to any default identity.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (engine.Session, bool) {
	householdID, err1 := strconv.ParseInt(r.Header.Get("X-Household-ID"), 10, 64)
	memberID, err2 := strconv.ParseInt(r.Header.Get("X-Member-ID"), 10, 64)
	if err1 != nil || err2 != nil || householdID == 0 || memberID == 0 {
		s.badRequest(w, "X-Household-ID and X-Member-ID headers are required")
		return engine.Session{}, false
	}
	return engine.Session{HouseholdID: householdID, MemberID: memberID}, true
}

// ---------------------------------------------------------------------------
// Members, trust, balances
// ---------------------------------------------------------------------------

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Name       string `json:"name"`
		Role       string `json:"role"`
		TelegramID *int64 `json:"telegram_id"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.badRequest(w, msg)
		return
	}
	member, err := s.eng.CreateMember(r.Context(), sess, req.Name, models.MemberRole(req.Role), req.TelegramID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, member)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	memberID, err := pathID(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	member, err := s.eng.GetMember(r.Context(), sess, memberID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, member)
}

func (s *Server) handleCurrentTrust(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	memberID, err := pathID(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	status, err := s.eng.CurrentTrust(r.Context(), sess, memberID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleTrustHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	memberID, err := pathID(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			s.badRequest(w, "since must be RFC3339")
			return
		}
	}
	events, err := s.eng.TrustHistory(r.Context(), sess, memberID, since)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, events)
}

func (s *Server) handleCurrentBalance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	memberID, err := pathID(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	balance, err := s.eng.CurrentBalance(r.Context(), sess, memberID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, balance)
}

func (s *Server) handleSpendMinutes(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	memberID, err := pathID(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	var req struct {
		Minutes int `json:"minutes"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.badRequest(w, msg)
		return
	}
	remaining, err := s.eng.SpendMinutes(r.Context(), sess, memberID, req.Minutes)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"minutes_balance": remaining})
}

// ---------------------------------------------------------------------------
// Social penalties
// ---------------------------------------------------------------------------

func (s *Server) handleApplyPenalty(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	memberID, err := pathID(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	var req struct {
		RelatedTaskID *int64 `json:"related_task_id"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.badRequest(w, msg)
		return
	}
	score, err := s.eng.ApplySocialPenalty(r.Context(), sess, memberID, req.RelatedTaskID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"score": score})
}

func (s *Server) handleUndoPenalty(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	memberID, err := pathID(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	restored, err := s.eng.UndoSocialPenalty(r.Context(), sess, memberID, nil)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"restored": restored})
}

// ---------------------------------------------------------------------------
// Task assignments
// ---------------------------------------------------------------------------

func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	memberID, err := strconv.ParseInt(r.URL.Query().Get("member_id"), 10, 64)
	if err != nil {
		s.badRequest(w, "member_id query parameter is required")
		return
	}
	filters := repository.TaskFilters{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.TaskStatus(raw)
		filters.Status = &status
	}
	tasks, err := s.eng.ListAssignments(r.Context(), sess, memberID, filters)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		MemberID   int64 `json:"member_id"`
		TemplateID int64 `json:"template_id"`
		BaseXP     int   `json:"base_xp"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.badRequest(w, msg)
		return
	}
	task, err := s.eng.CreateAssignment(r.Context(), sess, req.MemberID, req.TemplateID, req.BaseXP)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, task)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := s.eng.Start(r.Context(), sess, id); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": string(models.TaskStatusInProgress)})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	var req struct {
		ProofRef string `json:"proof_ref"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.badRequest(w, msg)
		return
	}
	if err := s.eng.SubmitForReview(r.Context(), sess, id, req.ProofRef); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": string(models.TaskStatusPendingReview)})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	xp, minutes, err := s.eng.Approve(r.Context(), sess, id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{
		"xp_credited":      xp,
		"minutes_credited": minutes,
	})
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	score, err := s.eng.Decline(r.Context(), sess, id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"score": score})
}
