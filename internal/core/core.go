// Package core wires the engine components and their supporting packages
// into one bootstrap object, constructed once by each cmd/ entrypoint and
// passed by reference from there. No ambient globals.
package core

import (
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"

	"github.com/windowanchor/workspaced/internal/applog"
	"github.com/windowanchor/workspaced/internal/config"
	"github.com/windowanchor/workspaced/internal/display"
	"github.com/windowanchor/workspaced/internal/paths"
	"github.com/windowanchor/workspaced/internal/progress"
	"github.com/windowanchor/workspaced/internal/restore"
	"github.com/windowanchor/workspaced/internal/snapshot"
	"github.com/windowanchor/workspaced/internal/store"
	"github.com/windowanchor/workspaced/internal/windowmgr"
	"github.com/windowanchor/workspaced/pkg/types"

	"go.uber.org/zap"
)

// Core bundles every component an operator surface (cmd/workspaced,
// cmd/workspacectl) needs.
type Core struct {
	Log      *zap.Logger
	Config   *config.Config
	Store    *store.Store
	Display  types.DisplayManager
	Windows  types.WindowManager
	Snapshot types.SnapshotEngine
	Restore  types.RestoreEngine
	Progress *progress.Hub
}

// New builds the full dependency graph against the OS's well-known
// per-user directories.
func New() (*Core, error) {
	dataDir := paths.AppDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating app data dir: %w", err)
	}

	st, err := store.New(nil, dataDir)
	if err != nil {
		return nil, fmt.Errorf("persistence: %w", err)
	}

	cfg, err := config.Load(st.SettingsPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	log, err := applog.New(st.LogPath(), level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	selfPID := uint32(os.Getpid())
	displayMgr := display.NewManager(log)
	windowMgr := windowmgr.NewManager(log, selfPID)
	snapshotEngine := snapshot.NewEngine(log, displayMgr, windowMgr, selfPID, paths.JumplistDir)
	restoreEngine := restore.NewEngine(log, displayMgr, windowMgr, selfPID)

	return &Core{
		Log:      log,
		Config:   cfg,
		Store:    st,
		Display:  displayMgr,
		Windows:  windowMgr,
		Snapshot: snapshotEngine,
		Restore:  restoreEngine,
		Progress: progress.NewHub(log),
	}, nil
}

// RecordFingerprint saves fp as the last-seen fingerprint. This is
// best-effort bookkeeping: a failure is logged and swallowed.
func (c *Core) RecordFingerprint(fp string) {
	if err := c.Store.SetLastFingerprint(fp); err != nil {
		c.Log.Warn("failed to record last fingerprint", zap.Error(err))
	}
}
