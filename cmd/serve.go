package main

import (
	"context"
	"encoding/json"
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

	"github.com/afriplan/takeoff-cli/internal/model"
	"github.com/afriplan/takeoff-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for takeoff requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/takeoff", func(w http.ResponseWriter, req *http.Request) {
			var project model.Project
			if err := json.NewDecoder(req.Body).Decode(&project); err != nil {
				writeJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if len(project.Pages) == 0 {
				writeJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "pages are required"})
				return
			}
			if project.Name == "" {
				project.Name = project.Pages[0].Filename
			}

			// The run executes asynchronously; clients poll /runs/{id}.
			go func() {
				result, err := env.Pipeline.Run(ctx, project)
				if err != nil {
					zap.L().Error("takeoff request failed",
						zap.String("project", project.Name),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("takeoff request complete",
					zap.String("project", project.Name),
					zap.String("run_id", result.RunID),
					zap.Float64("grand_total", result.Pricing.GrandTotal),
				)
			}()

			writeJSONResponse(w, http.StatusAccepted, map[string]string{
				"status":  "accepted",
				"project": project.Name,
			})
		})

		r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
			runs, err := env.Store.ListRuns(req.Context(), store.RunFilter{
				Status:  model.RunStatus(req.URL.Query().Get("status")),
				Project: req.URL.Query().Get("project"),
			})
			if err != nil {
				writeJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "list runs failed"})
				return
			}
			writeJSONResponse(w, http.StatusOK, runs)
		})

		r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			run, err := env.Store.GetRun(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeJSONResponse(w, http.StatusNotFound, map[string]string{"error": "run not found"})
				return
			}
			writeJSONResponse(w, http.StatusOK, run)
		})

		r.Get("/runs/{id}/corrections", func(w http.ResponseWriter, req *http.Request) {
			corrections, err := env.Store.ListCorrections(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "list corrections failed"})
				return
			}
			writeJSONResponse(w, http.StatusOK, corrections)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			drainServer(srv)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// shutdownTimeout bounds how long in-flight requests may drain on shutdown.
const shutdownTimeout = 10 * time.Second

// drainServer shuts the server down gracefully. The signal context is
// already cancelled by the time shutdown starts, so draining runs on its own
// deadline.
func drainServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
	}
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
