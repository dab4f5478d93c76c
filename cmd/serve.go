package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/avaloki108/Slitheryn/pkg/adk"
	"github.com/avaloki108/Slitheryn/pkg/engine"
	"github.com/avaloki108/Slitheryn/pkg/orchestrator"
	"github.com/avaloki108/Slitheryn/pkg/selector"
	"github.com/avaloki108/Slitheryn/pkg/stream"
)

const maxSourceBytes = 4 << 20

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API with live agent events over websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		log := adk.NewConsoleLogger(nil)
		hub := stream.NewHub(log)
		go hub.Run(ctx)

		orch, provider, err := newOrchestrator(ctx, cfg, orchestrator.WithObserver(hub))
		if err != nil {
			return err
		}
		defer closeProvider(provider)

		srv := &http.Server{
			Addr:              addr,
			Handler:           newAPIHandler(orch, hub, cfg.Analysis.Parallel),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		adk.Infof("Listening on http://%s (POST /api/analyze, GET /api/status, GET /ws)", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// analyzeBody is the JSON accepted by POST /api/analyze. Omitted fields use
// the configured defaults; omitted roles select every role.
type analyzeBody struct {
	SubjectID string            `json:"subject_id"`
	Code      string            `json:"code"`
	Context   map[string]string `json:"context"`
	Roles     *[]string         `json:"roles"`
	Mode      string            `json:"mode"`
	Threshold *float64          `json:"threshold"`
	Parallel  *bool             `json:"parallel"`
	Timeout   string            `json:"timeout"`
}

func (b analyzeBody) request(defaultParallel bool) (orchestrator.Request, error) {
	req := orchestrator.Request{
		SubjectID: b.SubjectID,
		Code:      b.Code,
		Context:   b.Context,
		Threshold: b.Threshold,
		Parallel:  defaultParallel,
	}
	if b.Parallel != nil {
		req.Parallel = *b.Parallel
	}
	if b.Mode != "" {
		m, err := selector.ParseMode(b.Mode)
		if err != nil {
			return req, err
		}
		req.Mode = m
	}
	if b.Timeout != "" {
		d, err := time.ParseDuration(b.Timeout)
		if err != nil {
			return req, fmt.Errorf("invalid timeout: %w", err)
		}
		req.PerAgentTimeout = d
	}
	// Omitted roles mean every role; an explicit empty list is kept empty.
	if b.Roles == nil {
		req.Roles = engine.AllRoles()
		return req, nil
	}
	req.Roles = []engine.Role{}
	for _, name := range *b.Roles {
		r, err := engine.ParseRole(name)
		if err != nil {
			return req, err
		}
		req.Roles = append(req.Roles, r)
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func newAPIHandler(orch *orchestrator.Orchestrator, hub *stream.Hub, defaultParallel bool) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/analyze", corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("use POST"))
			return
		}
		var body analyzeBody
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSourceBytes)).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
			return
		}
		req, err := body.request(defaultParallel)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		report, err := orch.Analyze(r.Context(), req)
		if errors.Is(err, orchestrator.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if hub != nil {
			hub.Broadcast("report", report)
		}
		writeJSON(w, http.StatusOK, report)
	}))

	mux.HandleFunc("/api/status", corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		probe := r.URL.Query().Get("probe") != ""
		writeJSON(w, http.StatusOK, orch.Status(r.Context(), probe))
	}))

	if hub != nil {
		mux.HandleFunc("/ws", hub.ServeWS)
	}
	return mux
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr)")
	rootCmd.AddCommand(serveCmd)
}
