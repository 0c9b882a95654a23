package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"meetflow/internal/api"
	"meetflow/internal/config"
	"meetflow/internal/logging"
	"meetflow/internal/queue"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           authMiddleware(strings.TrimSpace(cfg.Paths.APIToken), srv.routes()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Follow-mode log requests hold the connection open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/queue", s.handleEnqueue)
	mux.HandleFunc("POST /api/queue/bulk", s.handleBulk)
	mux.HandleFunc("POST /api/queue/prune", s.handlePrune)
	mux.HandleFunc("GET /api/queue", s.handleList)
	mux.HandleFunc("GET /api/queue/{id}", s.handleGet)
	mux.HandleFunc("POST /api/queue/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/queue/{id}/retry", s.handleRetry)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/customers", s.handleCustomers)
	mux.HandleFunc("GET /api/customers/{id}/actions", s.handleCustomerActions)
	mux.HandleFunc("GET /api/customers/{id}/diagram", s.handleCustomerDiagram)
	mux.HandleFunc("GET /api/actions", s.handleOpenActions)
	mux.HandleFunc("POST /api/actions/{id}/toggle", s.handleToggleAction)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	// Requests, follow-mode log polls included, end with the daemon.
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check api_bind and restart the daemon"),
				logging.String(logging.FieldImpact, "queue commands fall back to direct database access"),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req api.EnqueueRequest
	if !s.decode(w, r, &req) {
		return
	}
	job, err := s.daemon.queueSvc.Enqueue(r.Context(), req.SourceID, req.Title)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.JobResponse{Job: *job})
}

func (s *apiServer) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req api.BulkRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.daemon.queueSvc.EnqueueBulk(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handlePrune(w http.ResponseWriter, r *http.Request) {
	var req api.PruneRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	age := s.daemon.cfg.PruneAge()
	if req.OlderThanHours > 0 {
		age = time.Duration(req.OlderThanHours) * time.Hour
	}
	removed, err := s.daemon.queueSvc.Prune(r.Context(), age)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.PruneResponse{Removed: removed})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := queue.ParseStatus(value)
		if !ok {
			s.writeError(w, fmt.Errorf("%w: unknown status %q", api.ErrInvalidRequest, value))
			return
		}
		statuses = append(statuses, status)
	}
	jobs, err := s.daemon.queueSvc.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	job, err := s.daemon.queueSvc.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.queueSvc.Cancel(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	job, err := s.daemon.queueSvc.Retry(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.daemon.queueSvc.Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.daemon.Health(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *apiServer) handleCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.daemon.recordsSvc.Customers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.CustomerListResponse{Customers: customers})
}

func (s *apiServer) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	items, err := s.daemon.recordsSvc.CustomerActions(r.Context(), id, truthy(r.URL.Query().Get("all")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ActionListResponse{Items: items})
}

func (s *apiServer) handleCustomerDiagram(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	diagram, err := s.daemon.recordsSvc.CustomerDiagram(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.DiagramResponse{Diagram: *diagram})
}

func (s *apiServer) handleOpenActions(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.recordsSvc.OpenActions(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ActionListResponse{Items: items})
}

func (s *apiServer) handleToggleAction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	item, err := s.daemon.recordsSvc.ToggleAction(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ActionResponse{Item: *item})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.LogStream()
	if hub == nil {
		writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: []api.LogEvent{}})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := truthy(query.Get("follow"))
	tail := truthy(query.Get("tail"))
	jobID, _ := strconv.ParseInt(strings.TrimSpace(query.Get("job")), 10, 64)
	component := strings.TrimSpace(query.Get("component"))

	var (
		raw  []logging.LogEvent
		next uint64
	)
	if tail && since == 0 && !follow {
		raw, next = hub.Tail(limit)
	} else {
		var err error
		raw, next, err = hub.Fetch(r.Context(), since, limit, follow)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.writeError(w, err)
			return
		}
	}

	events := api.FromLogEvents(raw)
	filtered := events[:0]
	for _, evt := range events {
		if jobID != 0 && evt.JobID != jobID {
			continue
		}
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		filtered = append(filtered, evt)
	}
	writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: filtered, Next: next})
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		s.writeError(w, fmt.Errorf("%w: decode body: %v", api.ErrInvalidRequest, err))
		return false
	}
	return true
}

func (s *apiServer) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, fmt.Errorf("%w: invalid id %q", api.ErrInvalidRequest, r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	status := api.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(s.logger, "api request failed", "api_request_failed",
			logging.FailureAttrs(err)...,
		)
	}
	writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Code: api.ErrorCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func truthy(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}
