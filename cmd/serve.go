package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sellerdesk/trust-engine/internal/engine"
	"github.com/sellerdesk/trust-engine/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long:  "Serves the question/answer gate hooks, review endpoints and moderation actions, with background eligibility sweeps and daily clustering.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		go runTickers(ctx, env.Engine)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Engine),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// runTickers drives the hourly eligibility sweep and the daily clustering
// run until ctx is cancelled.
func runTickers(ctx context.Context, eng *engine.Engine) {
	hourly := time.NewTicker(time.Hour)
	daily := time.NewTicker(24 * time.Hour)
	defer hourly.Stop()
	defer daily.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-hourly.C:
			if _, err := eng.RunHourlyEligibilitySweep(ctx); err != nil {
				zap.L().Error("eligibility sweep failed", zap.Error(err))
			}
		case <-daily.C:
			if err := eng.RunDailyClustering(ctx); err != nil {
				zap.L().Error("daily clustering failed", zap.Error(err))
			}
		}
	}
}

func newRouter(eng *engine.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(rateLimit(rate.Limit(cfg.Server.RatePerSecond), cfg.Server.RateBurst))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/gate/question", handleQuestion(eng))
	r.Post("/gate/answer", handleAnswer(eng))

	r.Route("/patterns/{id}", func(r chi.Router) {
		r.Post("/review", handleReview(eng))
		r.Get("/can-auto-submit", handleCanAutoSubmit(eng))
		r.Post("/promote", handlePatternAction(func(ctx context.Context, id string) (*model.CanonicalPattern, error) {
			return eng.Promote(ctx, id)
		}))
		r.Post("/demote", handlePatternAction(func(ctx context.Context, id string) (*model.CanonicalPattern, error) {
			return eng.Demote(ctx, id)
		}))
		r.Post("/enable-auto-submit", handlePatternAction(func(ctx context.Context, id string) (*model.CanonicalPattern, error) {
			return eng.EnableAutoSubmit(ctx, id)
		}))
		r.Post("/disable-auto-submit", handleDisableAutoSubmit(eng))
	})

	r.Post("/suggestions/{id}/review", handleSuggestionReview(eng))
	r.Post("/alerts/{id}/resolve", handleAlertClose(eng.ResolveAlert))
	r.Post("/alerts/{id}/dismiss", handleAlertClose(eng.DismissAlert))

	return r
}

// rateLimit applies a shared token bucket across all requests.
func rateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleQuestion(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StoreID string `json:"store_id"`
			Text    string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.StoreID == "" || req.Text == "" {
			writeError(w, http.StatusBadRequest, "store_id and text are required")
			return
		}

		res, err := eng.OnQuestionReceived(r.Context(), req.StoreID, req.Text)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleAnswer(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionID string `json:"question_id"`
			Answer     string `json:"answer"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.QuestionID == "" || req.Answer == "" {
			writeError(w, http.StatusBadRequest, "question_id and answer are required")
			return
		}

		res, err := eng.OnAnswerGenerated(r.Context(), req.QuestionID, req.Answer)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleReview(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Outcome string `json:"outcome"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		outcome := model.ReviewOutcome(req.Outcome)
		if !outcome.Valid() {
			writeError(w, http.StatusBadRequest, "outcome must be APPROVED, REJECTED or MODIFIED")
			return
		}

		p, err := eng.OnHumanReview(r.Context(), chi.URLParam(r, "id"), outcome)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleCanAutoSubmit(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patternID := chi.URLParam(r, "id")

		var (
			ok  bool
			err error
		)
		if questionID := r.URL.Query().Get("question_id"); questionID != "" {
			ok, err = eng.CanAutoSubmitAnswer(r.Context(), patternID, questionID)
		} else {
			ok, err = eng.CanAutoSubmit(r.Context(), patternID)
		}
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"can_auto_submit": ok})
	}
}

func handlePatternAction(fn func(ctx context.Context, id string) (*model.CanonicalPattern, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleDisableAutoSubmit(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Reason == "" {
			req.Reason = "manually disabled"
		}

		p, err := eng.DisableAutoSubmit(r.Context(), chi.URLParam(r, "id"), req.Reason)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleSuggestionReview(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Decision string `json:"decision"`
			Title    string `json:"title"`
			Content  string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		decision := model.SuggestionStatus(req.Decision)
		switch decision {
		case model.SuggestionAccepted, model.SuggestionRejected, model.SuggestionModified:
		default:
			writeError(w, http.StatusBadRequest, "decision must be ACCEPTED, REJECTED or MODIFIED")
			return
		}

		s, err := eng.ReviewSuggestion(r.Context(), chi.URLParam(r, "id"), decision, req.Title, req.Content)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func handleAlertClose(fn func(ctx context.Context, alertID, resolvedBy, notes string) (*model.ConflictAlert, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ResolvedBy string `json:"resolved_by"`
			Notes      string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		a, err := fn(r.Context(), chi.URLParam(r, "id"), req.ResolvedBy, req.Notes)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps domain errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
