package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/varekai/stackup/internal/bootstrap"
	"github.com/varekai/stackup/internal/metrics"
	"github.com/varekai/stackup/internal/monitor"
)

// Router provides embeddable HTTP handlers for inspecting and nudging a
// running stack. Endpoints:
//   GET  {basePath}/status        query: name=... (single service, optional)
//   GET  {basePath}/logs          query: name=...&tail=200
//   POST {basePath}/restart       query: name=...
//   POST {basePath}/bootstrap     re-run the idempotent database bring-up
//   POST {basePath}/repair        destructive reset + bring-up
//   GET  {basePath}/healthz
//   GET  {basePath}/metrics
// basePath may be empty or start with '/'; no trailing slash.

type Router struct {
	mon      *monitor.Monitor
	rec      *bootstrap.Reconciler
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/abc" results in /abc/status, /abc/logs, ...
func NewRouter(mon *monitor.Monitor, rec *bootstrap.Reconciler, basePath string) *Router {
	return &Router{mon: mon, rec: rec, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/logs", r.handleLogs)
	group.POST("/restart", r.handleRestart)
	group.POST("/bootstrap", r.handleBootstrap)
	group.POST("/repair", r.handleRepair)
	group.GET("/healthz", r.handleHealthz)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// The caller shuts it down via http.Server's Shutdown or Close.
func NewServer(addr, basePath string, mon *monitor.Monitor, rec *bootstrap.Reconciler) (*http.Server, error) {
	r := NewRouter(mon, rec, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleStatus(c *gin.Context) {
	name := c.Query("name")
	st := r.mon.Status(c.Request.Context())
	if name == "" {
		writeJSON(c, http.StatusOK, st)
		return
	}
	if !isSafeName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return
	}
	entry, ok := st.Get(name)
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown service: " + name})
		return
	}
	writeJSON(c, http.StatusOK, entry)
}

func (r *Router) handleLogs(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	if !isSafeName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return
	}
	tail := 0
	if ts := c.Query("tail"); ts != "" {
		n, err := strconv.Atoi(ts)
		if err != nil || n < 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid tail: must be a non-negative integer"})
			return
		}
		tail = n
	}
	rc, err := r.mon.Logs(c.Request.Context(), name, tail)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	defer func() { _ = rc.Close() }()
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (r *Router) handleRestart(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	if !isSafeName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return
	}
	if err := r.mon.Restart(c.Request.Context(), name); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleBootstrap(c *gin.Context) {
	if r.rec == nil {
		writeJSON(c, http.StatusNotImplemented, errorResp{Error: "bootstrap not configured"})
		return
	}
	if err := r.rec.Run(c.Request.Context()); err != nil {
		writeJSON(c, statusForBootstrapErr(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleRepair(c *gin.Context) {
	if r.rec == nil {
		writeJSON(c, http.StatusNotImplemented, errorResp{Error: "repair not configured"})
		return
	}
	if err := r.rec.Repair(c.Request.Context()); err != nil {
		writeJSON(c, statusForBootstrapErr(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleHealthz(c *gin.Context) {
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func statusForBootstrapErr(err error) int {
	if errors.Is(err, bootstrap.ErrBusy) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
