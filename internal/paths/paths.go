// Package paths resolves the two well-known per-user directories the
// bootstrap needs: the WindowAnchor application-data directory all state
// lives under, and the OS's jump-list AutomaticDestinations directory the
// file resolver reads.
package paths

import (
	"os"
	"path/filepath"
)

// AppDataDir returns the per-user "WindowAnchor" application-data
// directory, rooted at %APPDATA% (falling back to the user's home
// directory off Windows, where this binary is never actually deployed but
// where its tests run).
func AppDataDir() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "WindowAnchor")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".windowanchor")
}

// JumplistDir returns the OS's per-user AutomaticDestinations directory
// jump-list files live under.
func JumplistDir() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "Microsoft", "Windows", "Recent", "AutomaticDestinations")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".windowanchor", "jumplist")
}
