package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/windowanchor/workspaced/internal/core"
)

// Server is the gin-routed control plane wrapping a *core.Core. Any
// integrator (a tray app, a hotkey daemon, curl) drives snapshots and
// restores through it.
type Server struct {
	core       *core.Core
	router     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

func NewServer(c *core.Core) *Server {
	s := &Server{
		core: c,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/v1")
	{
		v1.POST("/snapshots", s.takeSnapshot)
		v1.GET("/snapshots", s.listSnapshots)
		v1.GET("/snapshots/:name", s.getSnapshot)
		v1.DELETE("/snapshots/:name", s.deleteSnapshot)
		v1.POST("/restore", s.restore)
		v1.POST("/switch", s.switchWorkspace)
		v1.GET("/progress/:id", s.handleProgressStream)
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.core.Log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	s.core.Log.Info("starting workspaced", zap.String("address", addr))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.core.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.core.Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.core.Log.Error("forced shutdown", zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

type takeSnapshotRequest struct {
	Name      string `json:"name" binding:"required"`
	SaveFiles bool   `json:"saveFiles"`
}

// takeSnapshot starts a snapshot and immediately returns an operation id
// that the caller can stream progress for via /v1/progress/:id.
func (s *Server) takeSnapshot(c *gin.Context) {
	var req takeSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opID := uuid.NewString()
	sink := s.core.Progress.ForOperation(opID)

	go func() {
		snap, err := s.core.Snapshot.TakeSnapshot(req.Name, req.SaveFiles, nil, sink)
		if err != nil {
			s.core.Log.Error("snapshot failed", zap.String("name", req.Name), zap.Error(err))
			return
		}
		if err := s.core.Store.Save(snap); err != nil {
			s.core.Log.Error("snapshot save failed", zap.String("name", req.Name), zap.Error(err))
			return
		}
		s.core.RecordFingerprint(snap.MonitorFingerprint)
	}()

	c.JSON(http.StatusAccepted, gin.H{"operationId": opID})
}

func (s *Server) listSnapshots(c *gin.Context) {
	names, err := s.core.Store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": names})
}

func (s *Server) getSnapshot(c *gin.Context) {
	snap, err := s.core.Store.Load(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) deleteSnapshot(c *gin.Context) {
	if err := s.core.Store.Delete(c.Param("name")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type restoreRequest struct {
	Name       string   `json:"name" binding:"required"`
	MonitorIDs []string `json:"monitorIds"`
}

func (s *Server) restore(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := s.core.Store.Load(req.Name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	opID := uuid.NewString()
	sink := s.core.Progress.ForOperation(opID)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer cancel()
		res, err := s.core.Restore.Restore(ctx, snap, req.MonitorIDs, sink)
		if err != nil {
			s.core.Log.Error("restore failed", zap.String("name", req.Name), zap.Error(err))
			return
		}
		s.core.Log.Info("restore complete", zap.Int("matched", res.MatchedCount), zap.String("status", res.Status))
	}()

	c.JSON(http.StatusAccepted, gin.H{"operationId": opID})
}

func (s *Server) switchWorkspace(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := s.core.Store.Load(req.Name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	opID := uuid.NewString()
	sink := s.core.Progress.ForOperation(opID)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer cancel()
		res, err := s.core.Restore.SwitchWorkspace(ctx, snap, sink)
		if err != nil {
			s.core.Log.Error("switch failed", zap.String("name", req.Name), zap.Error(err))
			return
		}
		s.core.Log.Info("switch complete", zap.Bool("timedOut", res.TimedOut), zap.String("status", res.Status))
	}()

	c.JSON(http.StatusAccepted, gin.H{"operationId": opID})
}

// handleProgressStream upgrades to a WebSocket and registers the
// connection with the progress hub under the path's operation id.
func (s *Server) handleProgressStream(c *gin.Context) {
	opID := c.Param("id")
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.core.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	unregister := s.core.Progress.Register(opID, conn)
	defer unregister()

	// Drain reads until the client closes; no inbound protocol.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func main() {
	c, err := core.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "workspaced: %v\n", err)
		os.Exit(1)
	}
	defer c.Log.Sync()

	srv := NewServer(c)
	if err := srv.Start(c.Config.HTTPListenAddr); err != nil {
		c.Log.Fatal("server exited with error", zap.Error(err))
	}
}
