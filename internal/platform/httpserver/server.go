package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	voteprocessing "votepipeline/contexts/voteprocessing"
	domainerrors "votepipeline/contexts/voteprocessing/domain/errors"
	"votepipeline/contexts/voteprocessing/ports"
	voteprocessinghttp "votepipeline/contexts/voteprocessing/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "votepipeline/internal/platform/httpserver/docs"
)

type Server struct {
	mux             *http.ServeMux
	logger          *slog.Logger
	addr            string
	requestDeadline time.Duration
	module          voteprocessing.Module
}

func New(module voteprocessing.Module, logger *slog.Logger, addr string, requestDeadline time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}
	if requestDeadline <= 0 {
		requestDeadline = 10 * time.Second
	}

	s := &Server{
		mux:             http.NewServeMux(),
		logger:          logger,
		addr:            addr,
		requestDeadline: requestDeadline,
		module:          module,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  s.requestDeadline,
		WriteTimeout: s.requestDeadline + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /vote", s.handleSubmitLawVote)
	s.mux.HandleFunc("POST /elections/vote", s.handleSubmitElectionVote)
	s.mux.HandleFunc("GET /results/{ballot_id}", s.handleLawResults)
	s.mux.HandleFunc("GET /elections/{election_id}/regions/{region_id}/results", s.handleElectionResults)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /internal/reconciliation/{ballot_id}", s.handleLawReconciliation)
}

func (s *Server) handleSubmitLawVote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.requestDeadline)
	defer cancel()

	var req voteprocessinghttp.SubmitLawVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVoteError(w, http.StatusBadRequest, "request body must be valid JSON", "body")
		return
	}

	resp, err := s.module.Handler.SubmitLawVoteHandler(ctx, req)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleSubmitElectionVote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.requestDeadline)
	defer cancel()

	var req voteprocessinghttp.SubmitElectionVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVoteError(w, http.StatusBadRequest, "request body must be valid JSON", "body")
		return
	}

	resp, err := s.module.Handler.SubmitElectionVoteHandler(ctx, req)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleLawResults(w http.ResponseWriter, r *http.Request) {
	ballotID := r.PathValue("ballot_id")
	resp, err := s.module.Handler.LawResultsHandler(r.Context(), ballotID)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleElectionResults(w http.ResponseWriter, r *http.Request) {
	electionID, err := strconv.ParseInt(r.PathValue("election_id"), 10, 64)
	if err != nil {
		writeVoteError(w, http.StatusBadRequest, "election_id must be an integer", "election_id")
		return
	}
	regionID, err := strconv.ParseInt(r.PathValue("region_id"), 10, 64)
	if err != nil {
		writeVoteError(w, http.StatusBadRequest, "region_id must be an integer", "region_id")
		return
	}

	resp, err := s.module.Handler.ElectionResultsHandler(r.Context(), electionID, regionID)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := s.module.Handler.HealthHandler(r.Context())
	status := http.StatusOK
	if !resp.BusReachable || !resp.CredentialsReachable {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleLawReconciliation(w http.ResponseWriter, r *http.Request) {
	ballotID := r.PathValue("ballot_id")
	resp, err := s.module.Handler.LawReconciliationHandler(r.Context(), ballotID)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeVoteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrInvalidNAS):
		writeVoteError(w, http.StatusBadRequest, err.Error(), "nas")
	case errors.Is(err, domainerrors.ErrInvalidCode):
		writeVoteError(w, http.StatusBadRequest, err.Error(), "code")
	case errors.Is(err, domainerrors.ErrInvalidBallotID):
		writeVoteError(w, http.StatusBadRequest, err.Error(), "ballot_id")
	case errors.Is(err, domainerrors.ErrInvalidChoice):
		writeVoteError(w, http.StatusBadRequest, err.Error(), "choice")
	case errors.Is(err, domainerrors.ErrInvalidElectionID):
		writeVoteError(w, http.StatusBadRequest, err.Error(), "election_id")
	case errors.Is(err, domainerrors.ErrInvalidRegionID):
		writeVoteError(w, http.StatusBadRequest, err.Error(), "region_id")
	case errors.Is(err, domainerrors.ErrInvalidMethod):
		writeVoteError(w, http.StatusBadRequest, err.Error(), "method")
	case errors.Is(err, domainerrors.ErrInvalidChoicePayload):
		writeVoteError(w, http.StatusBadRequest, err.Error(), "choice_payload")
	case errors.Is(err, domainerrors.ErrDuplicateRankedEntry):
		writeVoteError(w, http.StatusBadRequest, err.Error(), "ranked_choices")
	case errors.Is(err, domainerrors.ErrElectionClosed):
		writeVoteError(w, http.StatusBadRequest, err.Error(), "election_id")
	case errors.Is(err, domainerrors.ErrElectionNotFound):
		writeVoteError(w, http.StatusNotFound, err.Error(), "election_id")
	case errors.Is(err, context.DeadlineExceeded):
		writeVoteError(w, http.StatusServiceUnavailable, "request deadline exceeded", "")
	case errors.Is(err, domainerrors.ErrBusUnavailable), errors.Is(err, domainerrors.ErrPublishTimeout):
		writeVoteError(w, http.StatusServiceUnavailable, err.Error(), "")
	case errors.Is(err, ports.ErrAuditConflict):
		writeVoteError(w, http.StatusConflict, err.Error(), "")
	default:
		writeVoteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

func writeVoteError(w http.ResponseWriter, status int, message string, field string) {
	writeJSON(w, status, voteprocessinghttp.ErrorResponse{
		Error: message,
		Field: field,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
