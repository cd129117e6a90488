package core

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWiresAllComponents(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APPDATA", dir)
	defer func() { _ = os.Unsetenv("APPDATA") }()

	c, err := New()
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.NotNil(t, c.Log)
	assert.NotNil(t, c.Config)
	assert.NotNil(t, c.Store)
	assert.NotNil(t, c.Display)
	assert.NotNil(t, c.Windows)
	assert.NotNil(t, c.Snapshot)
	assert.NotNil(t, c.Restore)
	assert.NotNil(t, c.Progress)
}

func TestRecordFingerprintPersists(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APPDATA", dir)
	defer func() { _ = os.Unsetenv("APPDATA") }()

	c, err := New()
	require.NoError(t, err)

	c.RecordFingerprint("abcd1234")
	got, err := c.Store.LastFingerprint()
	require.NoError(t, err)
	assert.Equal(t, "abcd1234", got)
}
