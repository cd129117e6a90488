// Package store implements the Persistence component: on-disk layout of
// workspace snapshots under a per-user application-data directory, name
// sanitization, and the one-time legacy-profile migration.
//
// Every read parses from disk and every write fully overwrites its target
// file; there is no in-memory cache to drift out of sync.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/windowanchor/workspaced/pkg/types"
	"go.uber.org/zap"
)

const (
	workspacesDirName   = "workspaces"
	legacyProfilesDir   = "profiles"
	lastFingerprintFile = "last_fingerprint.txt"
	settingsFile        = "settings.json"
	migrationSentinel   = ".migrated_v2"
	workspaceFileSuffix = ".workspace.json"
	legacyProfileSuffix = ".profile.json"
)

// Store implements types.Store against a directory tree rooted at dir
// (normally the OS's per-user application-data path for "WindowAnchor").
type Store struct {
	log *zap.Logger
	dir string
}

// New builds a Store rooted at dir, creating the workspaces subdirectory
// if absent, and runs the one-time legacy migration if the sentinel is
// not yet present.
func New(log *zap.Logger, dir string) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Join(dir, workspacesDirName), 0o755); err != nil {
		return nil, fmt.Errorf("creating workspaces directory: %w", err)
	}
	s := &Store{log: log, dir: dir}
	if err := s.migrateIfNeeded(); err != nil {
		log.Warn("legacy profile migration failed", zap.Error(err))
	}
	return s, nil
}

func (s *Store) workspacesDir() string { return filepath.Join(s.dir, workspacesDirName) }

// sanitizeName drops each filename-forbidden character; save, rename, and
// delete all go by the sanitized name.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			continue
		default:
			if r < 0x20 {
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *Store) workspacePath(name string) string {
	return filepath.Join(s.workspacesDir(), sanitizeName(name)+workspaceFileSuffix)
}

// Save fully overwrites the snapshot's file, keyed by its sanitized name.
func (s *Store) Save(snap *types.WorkspaceSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	path := s.workspacePath(snap.Name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %q: %w", path, err)
	}
	return nil
}

// Load parses a snapshot by its user-facing name (sanitized for lookup).
func (s *Store) Load(name string) (*types.WorkspaceSnapshot, error) {
	data, err := os.ReadFile(s.workspacePath(name))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", name, err)
	}
	var snap types.WorkspaceSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %q: %w", name, err)
	}
	return &snap, nil
}

// List returns every persisted snapshot's display name (the file's stem
// with the .workspace.json suffix removed), sorted alphabetically.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.workspacesDir())
	if err != nil {
		return nil, fmt.Errorf("read workspaces directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), workspaceFileSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), workspaceFileSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a snapshot's file by sanitized name.
func (s *Store) Delete(name string) error {
	if err := os.Remove(s.workspacePath(name)); err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	return nil
}

// Rename moves a snapshot's file and rewrites its stored Name field to
// match, so the on-disk name and the persisted display name never drift.
func (s *Store) Rename(oldName, newName string) error {
	snap, err := s.Load(oldName)
	if err != nil {
		return err
	}
	snap.Name = newName
	if err := s.Save(snap); err != nil {
		return err
	}
	if sanitizeName(oldName) == sanitizeName(newName) {
		return nil
	}
	return s.Delete(oldName)
}

// LastFingerprint reads the single trimmed line of last_fingerprint.txt.
// A missing file is not an error: it returns "".
func (s *Store) LastFingerprint() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, lastFingerprintFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read last fingerprint: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetLastFingerprint fully overwrites last_fingerprint.txt.
func (s *Store) SetLastFingerprint(fp string) error {
	path := filepath.Join(s.dir, lastFingerprintFile)
	if err := os.WriteFile(path, []byte(fp), 0o644); err != nil {
		return fmt.Errorf("write last fingerprint: %w", err)
	}
	return nil
}

// SettingsPath is the path internal/config reads/writes via viper; owned
// here because this package owns the whole on-disk layout.
func (s *Store) SettingsPath() string {
	return filepath.Join(s.dir, settingsFile)
}

// LogPath is the path internal/applog rolls app.log against.
func (s *Store) LogPath() string {
	return filepath.Join(s.dir, "app.log")
}

// legacyProfile mirrors the pre-migration profile JSON shape: a flatter,
// single-monitor-unaware record of a saved desktop.
type legacyProfile struct {
	DisplayName string               `json:"displayName"`
	Fingerprint string               `json:"fingerprint"`
	LastSaved   time.Time            `json:"lastSaved"`
	Windows     []types.WindowRecord `json:"windows"`
}

// migrateIfNeeded runs the one-time migration: if the sentinel is absent
// and a legacy profiles/ directory exists, convert each *.profile.json
// into a WorkspaceSnapshot, then write the sentinel so subsequent launches
// skip migration (idempotent by construction: the sentinel's presence is
// the entire check).
func (s *Store) migrateIfNeeded() error {
	sentinelPath := filepath.Join(s.dir, migrationSentinel)
	if _, err := os.Stat(sentinelPath); err == nil {
		return nil
	}

	legacyDir := filepath.Join(s.dir, legacyProfilesDir)
	entries, err := os.ReadDir(legacyDir)
	if err != nil {
		// No legacy directory: nothing to migrate, but the sentinel
		// still needs writing so we don't re-check every launch.
		return s.writeSentinel(sentinelPath)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), legacyProfileSuffix) {
			continue
		}
		if err := s.migrateOne(filepath.Join(legacyDir, e.Name())); err != nil {
			s.log.Warn("legacy profile migration skipped", zap.String("file", e.Name()), zap.Error(err))
		}
	}
	return s.writeSentinel(sentinelPath)
}

func (s *Store) migrateOne(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read legacy profile: %w", err)
	}
	var legacy legacyProfile
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("parse legacy profile: %w", err)
	}

	name := legacy.DisplayName
	if name == "" {
		prefix := legacy.Fingerprint
		if len(prefix) > 6 {
			prefix = prefix[:6]
		}
		name = "Monitor Config " + prefix
	}

	entries := make([]types.WorkspaceEntry, 0, len(legacy.Windows))
	for _, w := range legacy.Windows {
		entries = append(entries, types.WorkspaceEntry{
			Position:   w,
			FileSource: types.SourceNone,
		})
	}

	snap := &types.WorkspaceSnapshot{
		Name:               name,
		MonitorFingerprint: legacy.Fingerprint,
		SavedAt:            legacy.LastSaved,
		SavedWithFiles:     false,
		Monitors:           []types.Monitor{},
		Entries:            entries,
	}
	return s.Save(snap)
}

func (s *Store) writeSentinel(path string) error {
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("write migration sentinel: %w", err)
	}
	return nil
}

var _ types.Store = (*Store)(nil)
