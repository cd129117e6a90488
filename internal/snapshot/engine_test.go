package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowanchor/workspaced/pkg/types"
)

func TestSmartExcludedByProcessName(t *testing.T) {
	assert.True(t, SmartExcluded(types.LiveWindow{ProcessName: "KeePassXC"}))
	assert.True(t, SmartExcluded(types.LiveWindow{ProcessName: "bitwarden"}))
	assert.False(t, SmartExcluded(types.LiveWindow{ProcessName: "notepad"}))
}

func TestSmartExcludedByTitlePattern(t *testing.T) {
	assert.True(t, SmartExcluded(types.LiveWindow{ProcessName: "chrome", Title: "New Incognito Tab"}))
	assert.True(t, SmartExcluded(types.LiveWindow{ProcessName: "msedge", Title: "InPrivate browsing"}))
	assert.False(t, SmartExcluded(types.LiveWindow{ProcessName: "chrome", Title: "Example Site"}))
}

func TestApplyWorkspacePromotionPromotesFileToDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(file, []byte("package main"), 0o644))

	e := &Engine{}
	entry := &types.WorkspaceEntry{LaunchArg: file, FilePath: file}
	e.applyWorkspacePromotion(entry, types.LiveWindow{ProcessName: "Code"})

	assert.Equal(t, dir, entry.LaunchArg)
	assert.Equal(t, dir, entry.FilePath)
}

func TestApplyWorkspacePromotionSkipsNonEditorProcess(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(file, []byte("package main"), 0o644))

	e := &Engine{}
	entry := &types.WorkspaceEntry{LaunchArg: file, FilePath: file}
	e.applyWorkspacePromotion(entry, types.LiveWindow{ProcessName: "notepad"})

	assert.Equal(t, file, entry.LaunchArg)
}

func TestApplyWorkspacePromotionSkipsCodeWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "project.code-workspace")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))

	e := &Engine{}
	entry := &types.WorkspaceEntry{LaunchArg: file, FilePath: file}
	e.applyWorkspacePromotion(entry, types.LiveWindow{ProcessName: "cursor"})

	assert.Equal(t, file, entry.LaunchArg)
}

func TestApplyWorkspacePromotionSkipsWhenLaunchArgEmpty(t *testing.T) {
	e := &Engine{}
	entry := &types.WorkspaceEntry{}
	e.applyWorkspacePromotion(entry, types.LiveWindow{ProcessName: "code"})
	assert.Empty(t, entry.LaunchArg)
}

func TestApplyWorkspacePromotionSkipsDirectoryLaunchArg(t *testing.T) {
	dir := t.TempDir()
	e := &Engine{}
	entry := &types.WorkspaceEntry{LaunchArg: dir, FilePath: dir}
	e.applyWorkspacePromotion(entry, types.LiveWindow{ProcessName: "code"})
	assert.Equal(t, dir, entry.LaunchArg)
}
