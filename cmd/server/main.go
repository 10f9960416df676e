package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/liamcoop/typetour/dessert"
	"github.com/liamcoop/typetour/internal/config"
	"github.com/liamcoop/typetour/internal/logger"
	"github.com/liamcoop/typetour/posts"
	"github.com/liamcoop/typetour/rules"
	"github.com/liamcoop/typetour/union"
)

const maxBodyBytes = 1 << 20

type Server struct {
	db        *sql.DB // nil when rules are kept in memory
	evaluator *dessert.Evaluator
	posts     *posts.Client
	router    *chi.Mux
}

// NewServer opens the rule store named by cfg and builds the router
func NewServer(cfg config.Config) (*Server, error) {
	var (
		db    *sql.DB
		store rules.RuleStore
	)

	if cfg.Database.URL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store = rules.NewPostgresRuleStore(db)
	} else {
		store = dessert.NewDefaultRuleStore()
	}

	s, err := NewServerWithStore(db, store, posts.NewClient(cfg.Posts.URL))
	if err != nil && db != nil {
		db.Close()
	}
	return s, err
}

// NewServerWithStore builds a server over an existing rule store.
// db may be nil; it is only used for health checks.
func NewServerWithStore(db *sql.DB, store rules.RuleStore, postsClient *posts.Client) (*Server, error) {
	evaluator, err := dessert.NewEvaluator(store)
	if err != nil {
		return nil, fmt.Errorf("failed to load portion rules: %w", err)
	}

	s := &Server{
		db:        db,
		evaluator: evaluator,
		posts:     postsClient,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/combine", s.handleCombine)
		r.Post("/orders/evaluate", s.handleEvaluateOrder)
		r.Get("/posts/first", s.handleFirstPost)

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Post("/", s.handleCreateRule)
			r.Get("/{ruleId}", s.handleGetRule)
			r.Put("/{ruleId}", s.handleUpdateRule)
			r.Delete("/{ruleId}", s.handleDeleteRule)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Store: "memory"}

	if s.db != nil {
		resp.Store = "postgres"
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	all, err := s.evaluator.Engine().ListRules()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "failed to list rules", err)
		return
	}
	resp.Rules = len(all)

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCombine(w http.ResponseWriter, r *http.Request) {
	var req CombineRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := union.Combine(req.X, req.Y)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid argument combination", err)
		return
	}

	respondJSON(w, http.StatusOK, CombineResponse{Result: result})
}

func (s *Server) handleEvaluateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	order, err := dessert.DecodeOrder(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order", err)
		return
	}

	message, err := s.evaluator.Evaluate(order)
	if errors.Is(err, dessert.ErrInvalidOrder) {
		respondError(w, http.StatusBadRequest, "invalid order", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "evaluation failed", err)
		return
	}

	respondJSON(w, http.StatusOK, EvaluateOrderResponse{Message: message})
}

func (s *Server) handleFirstPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.FirstPost(r.Context())

	var (
		netErr *posts.NetworkError
		decErr *posts.DecodeError
	)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, newPostSummary(post))
	case errors.Is(err, posts.ErrEmptyResult):
		respondError(w, http.StatusNotFound, "no posts available", err)
	case errors.As(err, &netErr):
		respondError(w, http.StatusBadGateway, "posts endpoint unreachable", err)
	case errors.As(err, &decErr):
		respondError(w, http.StatusBadGateway, "posts endpoint returned malformed data", err)
	default:
		respondError(w, http.StatusInternalServerError, "failed to fetch posts", err)
	}
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	all, err := s.evaluator.Engine().ListRules()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	resp := RulesListResponse{Rules: make([]RuleResponse, 0, len(all))}
	for _, rule := range all {
		resp.Rules = append(resp.Rules, newRuleResponse(rule))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule := &rules.Rule{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Condition: req.Condition,
		Message:   req.Message,
		Active:    true,
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := s.evaluator.Engine().AddRule(rule); err != nil {
		respondRuleError(w, "failed to add rule", err)
		return
	}

	logger.Info("portion rule created", "rule", rule.ID, "name", rule.Name)
	respondJSON(w, http.StatusCreated, newRuleResponse(rule))
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.evaluator.Engine().GetRule(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondRuleError(w, "failed to get rule", err)
		return
	}

	respondJSON(w, http.StatusOK, newRuleResponse(rule))
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	engine := s.evaluator.Engine()
	rule, err := engine.GetRule(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondRuleError(w, "failed to update rule", err)
		return
	}

	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Condition != "" {
		rule.Condition = req.Condition
	}
	if req.Message != "" {
		rule.Message = req.Message
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := engine.UpdateRule(rule); err != nil {
		respondRuleError(w, "failed to update rule", err)
		return
	}

	respondJSON(w, http.StatusOK, newRuleResponse(rule))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.evaluator.Engine().DeleteRule(chi.URLParam(r, "ruleId")); err != nil {
		respondRuleError(w, "failed to delete rule", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Error(message, "status", status, "error", err)
	}
	respondJSON(w, status, resp)
}

// respondRuleError maps rule errors onto status codes
func respondRuleError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, rules.ErrRuleNotFound):
		respondError(w, http.StatusNotFound, "rule not found", err)
	case errors.Is(err, rules.ErrRuleExists):
		respondError(w, http.StatusConflict, "rule already exists", err)
	case errors.Is(err, rules.ErrInvalidRule):
		respondError(w, http.StatusBadRequest, message, err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
	}
}

func main() {
	configPath := flag.String("config", os.Getenv("TYPETOUR_CONFIG"), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}
	if level, err := logger.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "posts", cfg.Posts.URL, "postgres", server.db != nil)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}

	logger.Info("server stopped")
}
