// Package httpapi exposes the interview engine over a small JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spigell/interview-agent/internal/interview"
	"github.com/spigell/interview-agent/internal/logger"
	"github.com/spigell/interview-agent/internal/model"
	"go.uber.org/zap"
)

const ServiceName = "interview-agent"

const maxBodyBytes = 1 << 20

// Service is the part of interview.Engine served over HTTP.
type Service interface {
	Start(ctx context.Context, candidate model.Candidate) (*interview.StartResult, error)
	Process(ctx context.Context, interviewID, content string) (*interview.TurnResult, error)
	Status(ctx context.Context, interviewID string) (*interview.Status, error)
	Report(ctx context.Context, interviewID string) (*model.Report, error)
	Candidate(ctx context.Context, id string) (model.Candidate, error)
	Candidates(ctx context.Context, status string) ([]model.Candidate, error)
	CandidateScores(ctx context.Context, candidateID string) ([]model.Score, error)
	Stats(ctx context.Context) (*interview.Stats, error)
}

type Server struct {
	svc    Service
	logger *zap.Logger
}

func New(svc Service, log *zap.Logger) *Server {
	return &Server{svc: svc, logger: logger.WithFields(log)}
}

type startRequest struct {
	Candidate *model.Candidate `json:"candidate"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes returns a chi.Router with every API route mounted under /api.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Route("/interviews", func(r chi.Router) {
			r.Post("/start", s.startInterview)
			r.Post("/{id}/message", s.sendMessage)
			r.Get("/{id}/status", s.interviewStatus)
			r.Get("/{id}/report", s.interviewReport)
		})

		r.Route("/candidates", func(r chi.Router) {
			r.Get("/", s.listCandidates)
			r.Get("/stats", s.stats)
			r.Get("/{id}", s.getCandidate)
			r.Get("/{id}/scores", s.candidateScores)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": ServiceName})
}

func (s *Server) startInterview(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Candidate == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "candidate is required"})
		return
	}
	if strings.TrimSpace(req.Candidate.Email) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "candidate email is required"})
		return
	}

	res, err := s.svc.Start(r.Context(), *req.Candidate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "content is required"})
		return
	}

	res, err := s.svc.Process(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) interviewStatus(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) interviewReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listCandidates(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Candidates(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getCandidate(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Candidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) candidateScores(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.CandidateScores(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, interview.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, interview.ErrInvalidCandidate):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
