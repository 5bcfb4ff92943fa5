// Package server exposes the engine as a JSON HTTP API for the UI shell.
// Handlers decode, delegate to services, and map domain errors to status
// codes; no game rules live here.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"lifequest/internal/domain"
	"lifequest/internal/service"
	"lifequest/internal/timer"
)

type Server struct {
	quests   *service.QuestService
	skills   *service.SkillService
	timeLogs *service.TimeLogService
	daily    *service.DailyService
	stats    *service.StatsService
	timer    *timer.Accumulator
	logger   zerolog.Logger
}

func New(
	quests *service.QuestService,
	skills *service.SkillService,
	timeLogs *service.TimeLogService,
	daily *service.DailyService,
	stats *service.StatsService,
	acc *timer.Accumulator,
	logger zerolog.Logger,
) *Server {
	return &Server{
		quests:   quests,
		skills:   skills,
		timeLogs: timeLogs,
		daily:    daily,
		stats:    stats,
		timer:    acc,
		logger:   logger,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quests", s.handleListQuests)
	mux.HandleFunc("POST /api/quests", s.handleCreateQuest)
	mux.HandleFunc("GET /api/quests/{id}", s.handleGetQuest)
	mux.HandleFunc("PATCH /api/quests/{id}", s.handleUpdateQuest)
	mux.HandleFunc("DELETE /api/quests/{id}", s.handleDeleteQuest)
	mux.HandleFunc("POST /api/quests/{id}/complete", s.handleCompleteQuest)

	mux.HandleFunc("GET /api/skills", s.handleListSkills)
	mux.HandleFunc("POST /api/skills", s.handleCreateSkill)
	mux.HandleFunc("GET /api/skills/{id}", s.handleGetSkill)
	mux.HandleFunc("PATCH /api/skills/{id}", s.handleUpdateSkill)

	mux.HandleFunc("GET /api/player", s.handlePlayer)
	mux.HandleFunc("GET /api/stats/today", s.handleTodayStats)
	mux.HandleFunc("GET /api/snapshots", s.handleSnapshots)
	mux.HandleFunc("POST /api/day/process", s.handleProcessDay)

	mux.HandleFunc("POST /api/time-logs", s.handleLogTime)

	mux.HandleFunc("GET /api/timer", s.handleTimerStatus)
	mux.HandleFunc("POST /api/timer/start", s.handleTimerStart)
	mux.HandleFunc("POST /api/timer/pause", s.handleTimerPause)
	mux.HandleFunc("POST /api/timer/resume", s.handleTimerResume)
	mux.HandleFunc("POST /api/timer/tick", s.handleTimerTick)
	mux.HandleFunc("POST /api/timer/stop", s.handleTimerStop)
}

type questPayload struct {
	SkillID     string                    `json:"skillId"`
	Title       string                    `json:"title"`
	Difficulty  domain.Difficulty         `json:"difficulty"`
	DueDate     string                    `json:"dueDate"`
	IsRecurring bool                      `json:"isRecurring"`
	Recurrence  *domain.RecurrencePattern `json:"recurrence"`
}

func (s *Server) handleCreateQuest(w http.ResponseWriter, r *http.Request) {
	var in questPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	q, err := s.quests.Create(r.Context(), service.CreateQuestInput{
		SkillID:     in.SkillID,
		Title:       in.Title,
		Difficulty:  in.Difficulty,
		DueDate:     in.DueDate,
		IsRecurring: in.IsRecurring,
		Recurrence:  in.Recurrence,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, q)
}

func (s *Server) handleListQuests(w http.ResponseWriter, r *http.Request) {
	if date := r.URL.Query().Get("date"); date != "" {
		quests, err := s.quests.ListForDate(r.Context(), date)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, quests)
		return
	}
	if skillID := r.URL.Query().Get("skill"); skillID != "" {
		quests, err := s.quests.ListBySkill(r.Context(), skillID)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, quests)
		return
	}

	quests, err := s.quests.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, quests)
}

func (s *Server) handleGetQuest(w http.ResponseWriter, r *http.Request) {
	q, err := s.quests.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

type questUpdatePayload struct {
	SkillID     *string                   `json:"skillId"`
	Title       *string                   `json:"title"`
	Difficulty  *domain.Difficulty        `json:"difficulty"`
	DueDate     *string                   `json:"dueDate"`
	IsRecurring *bool                     `json:"isRecurring"`
	Recurrence  *domain.RecurrencePattern `json:"recurrence"`
}

func (s *Server) handleUpdateQuest(w http.ResponseWriter, r *http.Request) {
	var in questUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	q, err := s.quests.Update(r.Context(), r.PathValue("id"), domain.QuestUpdate{
		SkillID:     in.SkillID,
		Title:       in.Title,
		Difficulty:  in.Difficulty,
		DueDate:     in.DueDate,
		IsRecurring: in.IsRecurring,
		Recurrence:  in.Recurrence,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleDeleteQuest(w http.ResponseWriter, r *http.Request) {
	if err := s.quests.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteQuest(w http.ResponseWriter, r *http.Request) {
	res, err := s.quests.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("all") == "true"
	skills, err := s.skills.List(r.Context(), includeInactive)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, skills)
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	sk, err := s.skills.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sk)
}

func (s *Server) handleCreateSkill(w http.ResponseWriter, r *http.Request) {
	var in service.CreateSkillInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	sk, err := s.skills.Create(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sk)
}

type skillUpdatePayload struct {
	Name         *string `json:"name"`
	Icon         *string `json:"icon"`
	Color        *string `json:"color"`
	DisplayOrder *int    `json:"displayOrder"`
	IsActive     *bool   `json:"isActive"`
}

func (s *Server) handleUpdateSkill(w http.ResponseWriter, r *http.Request) {
	var in skillUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	sk, err := s.skills.Update(r.Context(), r.PathValue("id"), domain.SkillUpdate{
		Name:         in.Name,
		Icon:         in.Icon,
		Color:        in.Color,
		DisplayOrder: in.DisplayOrder,
		IsActive:     in.IsActive,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sk)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	overview, err := s.stats.Player(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleTodayStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Today(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.stats.Snapshots(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleProcessDay(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daily.CheckAndProcessNewDay(r.Context()))
}

type logTimePayload struct {
	SkillID string           `json:"skillId"`
	Seconds int              `json:"seconds"`
	Source  domain.LogSource `json:"source"`
}

func (s *Server) handleLogTime(w http.ResponseWriter, r *http.Request) {
	var in logTimePayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if in.Source == "" {
		in.Source = domain.SourceManual
	}

	res, err := s.timeLogs.LogTime(r.Context(), in.SkillID, in.Seconds, in.Source)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

type timerStartPayload struct {
	SkillID  string `json:"skillId"`
	Recovery bool   `json:"recovery"`
}

func (s *Server) handleTimerStart(w http.ResponseWriter, r *http.Request) {
	var in timerStartPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	s.timer.Start(in.SkillID, in.Recovery)
	s.writeJSON(w, http.StatusOK, s.timer.Current())
}

func (s *Server) handleTimerPause(w http.ResponseWriter, r *http.Request) {
	s.timer.Pause()
	s.writeJSON(w, http.StatusOK, s.timer.Current())
}

func (s *Server) handleTimerResume(w http.ResponseWriter, r *http.Request) {
	s.timer.Resume()
	s.writeJSON(w, http.StatusOK, s.timer.Current())
}

func (s *Server) handleTimerTick(w http.ResponseWriter, r *http.Request) {
	s.timer.Tick()
	s.writeJSON(w, http.StatusOK, s.timer.Current())
}

func (s *Server) handleTimerStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.timer.Current())
}

// handleTimerStop ends the session and, when it tracked real time, logs it.
// A zero-length session just resets the timer.
func (s *Server) handleTimerStop(w http.ResponseWriter, r *http.Request) {
	stop := s.timer.Stop()
	if stop.SkillID == "" || stop.ElapsedSeconds == 0 {
		// Nothing to log, but a disqualifying pause still has to void the
		// recovery accumulator.
		if stop.RecoveryPauseExceeded {
			if err := s.timeLogs.VoidRecoverySession(r.Context()); err != nil {
				s.writeDomainError(w, r, err)
				return
			}
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"logged": false})
		return
	}

	res, err := s.timeLogs.LogTimerSession(r.Context(), stop)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrCompletionInProgress),
		errors.Is(err, domain.ErrQuestImmutable):
		s.writeError(w, r, http.StatusConflict, err)
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidRecurrence),
		errors.Is(err, domain.ErrUnsupportedRecurrence):
		s.writeError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrSkillMissing):
		s.writeError(w, r, http.StatusInternalServerError, err)
	default:
		s.writeError(w, r, http.StatusInternalServerError, err)
	}
}
