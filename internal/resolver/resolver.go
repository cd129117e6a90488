// Package resolver implements the three-tier file-detection pipeline:
// title-regex parsing, jump-list binary parsing, and filesystem search,
// plus the Explorer fast path and the registry-driven extension-to-handler
// mapping those tiers depend on.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/windowanchor/workspaced/internal/errtag"
	"github.com/windowanchor/workspaced/internal/resolver/jumplist"
	"github.com/windowanchor/workspaced/pkg/types"
	"go.uber.org/zap"
)

// Resolver implements types.FileResolver. One instance is built per
// snapshot pass; its jump-list Index is discarded at the end of the pass.
type Resolver struct {
	log      *zap.Logger
	handlers *handlerCache
	index    *jumplist.Index
	explorer *explorerAutomation
}

// New builds a Resolver whose jump-list Index is parsed once, immediately,
// from dir (the OS's AutomaticDestinations directory).
func New(log *zap.Logger, jumplistDir string) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	handlers := newHandlerCache(log)
	return &Resolver{
		log:      log,
		handlers: handlers,
		index:    jumplist.NewIndex(log, jumplistDir, handlers.resolve),
		explorer: newExplorerAutomation(log),
	}
}

// Resolve runs tiers 1 → 1.5 → 2 → 3, short-circuiting as soon as
// confidence reaches 80.
func (r *Resolver) Resolve(w types.LiveWindow) (string, int, types.FileSource) {
	if path, conf, bare := tier1(w.ProcessName, w.Title); path != "" {
		return path, conf, types.SourceTitleParse
	} else if bare != "" {
		// Tier 1.5: exact filename in the owning application's jump
		// list, pool of up to 50.
		if w.ExecutablePath != "" {
			candidates := r.index.GetRecentFilesForApp(w.ExecutablePath, w.ProcessName, 50)
			for _, c := range candidates {
				if strings.EqualFold(filepath.Base(c), bare) {
					return c, 90, types.SourceJumplistExact
				}
			}
		}
		// Tier 1 bare-filename result stands at confidence 40 if
		// nothing stronger is found below.
		if path, conf, src := r.tier2(w); path != "" {
			return path, conf, src
		}
		if path, conf, src := r.tier3(bare); path != "" {
			return path, conf, src
		}
		return bare, 40, types.SourceTitleParse
	}

	if w.ExecutablePath == "" {
		return "", 0, types.SourceNone
	}
	if path, conf, src := r.tier2(w); path != "" {
		return path, conf, src
	}
	return "", 0, types.SourceNone
}

// tier2 infers a document from the jump list: up to 30 candidates owned by
// this application, kept when the file-name or file-stem (length >= 3)
// appears as a substring of the title, preferring the longest (most
// specific) stem match. Stem comparison is plain lowercasing with no
// accent stripping, so "Café.docx" will not match a title rendering it
// decomposed; a known limitation.
func (r *Resolver) tier2(w types.LiveWindow) (string, int, types.FileSource) {
	if w.ExecutablePath == "" {
		return "", 0, types.SourceNone
	}
	candidates := r.index.GetRecentFilesForApp(w.ExecutablePath, w.ProcessName, 30)
	title := strings.ToLower(w.Title)

	best := ""
	bestStemLen := -1
	for _, c := range candidates {
		base := filepath.Base(c)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if len(stem) < 3 {
			continue
		}
		lowerBase := strings.ToLower(base)
		lowerStem := strings.ToLower(stem)
		if !strings.Contains(title, lowerBase) && !strings.Contains(title, lowerStem) {
			continue
		}
		if len(stem) > bestStemLen {
			best = c
			bestStemLen = len(stem)
		}
	}
	if best == "" {
		return "", 0, types.SourceNone
	}
	return best, 80, types.SourceJumplist
}

// tier3 searches the filesystem across document, desktop, downloads, and
// up to three OneDrive roots. Recurses
// directory-by-directory so one inaccessible or cloud-placeholder folder
// does not abort the scan. Zero or multiple matches are ambiguous: never
// guess.
func (r *Resolver) tier3(bareFilename string) (string, int, types.FileSource) {
	roots := searchRoots()
	var matches []string
	for _, root := range roots {
		searchDir(r.log, root, bareFilename, &matches)
		if len(matches) > 1 {
			return "", 0, types.SourceNone
		}
	}
	if len(matches) == 1 {
		return matches[0], 85, types.SourceFileSearch
	}
	return "", 0, types.SourceNone
}

func searchDir(log *zap.Logger, dir, filename string, matches *[]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debug("directory skipped during search",
			zap.String("dir", dir),
			zap.Error(fmt.Errorf("%w: %v", errtag.ErrDirectoryInaccessible, err)))
		return
	}
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			searchDir(log, full, filename, matches)
			continue
		}
		if strings.EqualFold(e.Name(), filename) {
			*matches = append(*matches, full)
			if len(*matches) > 1 {
				return
			}
		}
	}
}

func searchRoots() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	roots := []string{
		filepath.Join(home, "Documents"),
		filepath.Join(home, "Desktop"),
		filepath.Join(home, "Downloads"),
	}
	for _, oneDrive := range []string{"OneDrive", "OneDrive - Personal", "OneDrive - Commercial"} {
		roots = append(roots, filepath.Join(home, oneDrive))
	}
	return roots
}

// ExplorerFolder implements the Explorer fast path: if the window belongs
// to the OS file browser and its open folder path is known (via the shell
// automation object), return it directly; callers treat this as
// confidence 95, source EXPLORER_FOLDER, bypassing all three tiers.
func (r *Resolver) ExplorerFolder(w types.LiveWindow) (string, bool) {
	if !strings.EqualFold(w.ProcessName, "explorer") {
		return "", false
	}
	return r.explorer.folderForWindow(w.Handle)
}

var _ types.FileResolver = (*Resolver)(nil)
