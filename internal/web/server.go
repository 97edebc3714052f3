// Package web exposes the batch compressor over HTTP: REST endpoints to
// launch a run and a websocket that streams per-file progress.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/adekpp/cli-image-compressor/internal/batch"
	"github.com/adekpp/cli-image-compressor/internal/codec"
	"github.com/adekpp/cli-image-compressor/internal/compressor"
	"github.com/adekpp/cli-image-compressor/internal/config"
	"github.com/adekpp/cli-image-compressor/internal/report"
	"github.com/adekpp/cli-image-compressor/internal/stats"
)

type Server struct {
	defaults   config.Options
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server

	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.RWMutex

	opMutex     sync.RWMutex
	isRunning   bool
	lastSummary *report.Summary
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CompressRequest launches a batch. Option fields left at zero values
// fall back to the server defaults.
type CompressRequest struct {
	Path        string `json:"path"`
	Quality     int    `json:"quality,omitempty"`
	Format      string `json:"format,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Output      string `json:"output,omitempty"`
	Replace     bool   `json:"replace"`
	DryRun      bool   `json:"dry_run"`
	MinSizeKB   int64  `json:"min_size,omitempty"`
	MaxSizeKB   int64  `json:"max_size,omitempty"`
	KeepMeta    bool   `json:"keep_metadata"`
	NoRotate    bool   `json:"no_rotate"`
	KeepStructs bool   `json:"keep_structure"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type outcomePayload struct {
	Index           int     `json:"index"`
	Total           int     `json:"total"`
	Status          string  `json:"status"`
	Input           string  `json:"input"`
	Output          string  `json:"output,omitempty"`
	OriginalBytes   int64   `json:"original_bytes"`
	CompressedBytes int64   `json:"compressed_bytes"`
	SavedPercent    float64 `json:"saved_percent"`
	Reason          string  `json:"reason,omitempty"`
	Error           string  `json:"error,omitempty"`
}

func NewServer(defaults config.Options, log *logrus.Logger) *Server {
	s := &Server{
		defaults:  defaults,
		log:       log,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/defaults", s.handleDefaults).Methods("GET")
	api.HandleFunc("/compress", s.handleCompress).Methods("POST")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.opMutex.RLock()
	running := s.isRunning
	summary := s.lastSummary
	s.opMutex.RUnlock()

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running": running,
			"summary": summary,
		},
	})
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{Success: true, Data: s.defaults})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	var req CompressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		s.writeError(w, "Path is required", http.StatusBadRequest)
		return
	}

	opts := s.resolveOptions(req)
	if err := opts.Validate(); err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	candidates, baseDir, err := batch.Discover(req.Path)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Claim the single batch slot before the goroutine launches, so two
	// near-simultaneous requests cannot both pass the check.
	if !s.tryBeginBatch() {
		s.writeError(w, "Batch already in progress", http.StatusConflict)
		return
	}

	go s.runBatchAsync(req.Path, candidates, baseDir, opts)

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: fmt.Sprintf("Batch started (%d files)", len(candidates)),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "."
	}

	analyzer := &stats.Analyzer{Codec: codec.NewImagingCodec(), Log: s.log}
	rep, err := analyzer.Analyze(path)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, APIResponse{Success: true, Data: rep})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) resolveOptions(req CompressRequest) config.Options {
	opts := s.defaults
	if req.Quality != 0 {
		opts.Quality = req.Quality
	}
	opts.Format = req.Format
	opts.Width = req.Width
	opts.Height = req.Height
	opts.Output = req.Output
	opts.Replace = req.Replace
	opts.DryRun = req.DryRun
	if req.MinSizeKB != 0 {
		opts.MinSizeKB = req.MinSizeKB
	}
	if req.MaxSizeKB != 0 {
		opts.MaxSizeKB = req.MaxSizeKB
	}
	opts.KeepMetadata = req.KeepMeta
	opts.Rotate = !req.NoRotate
	opts.KeepStructure = req.KeepStructs
	return opts
}

// tryBeginBatch claims the single batch slot. Exactly one caller wins
// until finishBatch releases it.
func (s *Server) tryBeginBatch() bool {
	s.opMutex.Lock()
	defer s.opMutex.Unlock()
	if s.isRunning {
		return false
	}
	s.isRunning = true
	return true
}

func (s *Server) finishBatch(summary report.Summary) {
	s.opMutex.Lock()
	s.isRunning = false
	s.lastSummary = &summary
	s.opMutex.Unlock()
}

func (s *Server) runBatchAsync(path string, candidates []batch.Candidate, baseDir string, opts config.Options) {
	s.broadcast("batch_started", map[string]interface{}{
		"path":  path,
		"total": len(candidates),
	})

	runner := &batch.Runner{
		Opts: opts,
		Comp: compressor.New(codec.NewImagingCodec(), opts, s.log),
		Log:  s.log,
		OnOutcome: func(index, total int, oc compressor.Outcome) {
			payload := outcomePayload{
				Index:           index,
				Total:           total,
				Status:          oc.Status.String(),
				Input:           oc.Input,
				Output:          oc.Output,
				OriginalBytes:   oc.OriginalBytes,
				CompressedBytes: oc.CompressedBytes,
				SavedPercent:    oc.SavedPercent,
				Reason:          oc.Reason,
			}
			if oc.Err != nil {
				payload.Error = oc.Err.Error()
			}
			s.broadcast("file_done", payload)
		},
	}

	ledger := runner.Run(candidates, baseDir)
	summary := report.Summarize(ledger)
	s.finishBatch(summary)

	s.broadcast("batch_completed", summary)
}

func (s *Server) broadcast(messageType string, data interface{}) {
	msgBytes, err := json.Marshal(WSMessage{Type: messageType, Data: data})
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()

	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			go func(c *websocket.Conn) {
				s.wsMutex.Lock()
				delete(s.wsClients, c)
				s.wsMutex.Unlock()
				c.Close()
			}(conn)
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: message})
}
