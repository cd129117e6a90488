package jumplist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/windowanchor/workspaced/internal/errtag"
	"go.uber.org/zap"
)

// officeExtensions maps a file extension to its canonical process name,
// bypassing handler resolution entirely; the reliable path for Office
// click-to-run installs where the registered handler is a wrapper exe.
var officeExtensions = map[string]string{
	".doc": "winword", ".docx": "winword", ".docm": "winword",
	".xls": "excel", ".xlsx": "excel", ".xlsm": "excel",
	".ppt": "powerpnt", ".pptx": "powerpnt",
	".pdf": "acrord32",
	".txt": "notepad",
}

// HandlerResolver maps a file extension to its handler executable path
// (empty on a registry miss). Supplied by the caller since handler
// resolution needs the process-lifetime registry cache.
type HandlerResolver func(ext string) string

// Index holds the three parallel lookups over one parse of the jump-list
// directory. Built once per snapshot pass and discarded at the end; never
// shared across passes.
type Index struct {
	log            *zap.Logger
	dir            string
	resolveHandler HandlerResolver

	byHandler     map[string][]string
	byProcessName map[string][]string
	directCache   map[string][]string
}

// NewIndex parses every jump-list file under dir, which is the OS's
// well-known per-user AutomaticDestinations directory.
func NewIndex(log *zap.Logger, dir string, resolveHandler HandlerResolver) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	idx := &Index{
		log:            log,
		dir:            dir,
		resolveHandler: resolveHandler,
		byHandler:      make(map[string][]string),
		byProcessName:  make(map[string][]string),
		directCache:    make(map[string][]string),
	}
	idx.build()
	return idx
}

func (idx *Index) build() {
	entries, err := os.ReadDir(idx.dir)
	if err != nil {
		idx.log.Debug("jump-list directory unreadable", zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths := idx.parseFile(filepath.Join(idx.dir, e.Name()))
		for _, p := range paths {
			ext := strings.ToLower(filepath.Ext(p))
			if procName, ok := officeExtensions[ext]; ok {
				idx.byProcessName[procName] = append(idx.byProcessName[procName], p)
			}
			if idx.resolveHandler != nil {
				if handler := idx.resolveHandler(ext); handler != "" {
					idx.byHandler[handler] = append(idx.byHandler[handler], p)
				}
			}
		}
	}
}

// parseFile copies the file to a temp location (the shell locks the
// original), opens it as a compound document, and parses every stream
// except DestList as a Shell Link. A corrupt file or corrupt stream is
// logged and skipped; it never aborts the rest of the directory.
func (idx *Index) parseFile(path string) []string {
	tmp, err := copyToTemp(path)
	if err != nil {
		idx.log.Debug("jump-list temp copy failed", zap.String("path", path), zap.Error(err))
		return nil
	}
	defer os.Remove(tmp)

	doc, err := Open(tmp)
	if err != nil {
		idx.log.Debug("jump-list file skipped",
			zap.String("path", path),
			zap.Error(fmt.Errorf("%w: %v", errtag.ErrCompoundDocMalformed, err)))
		return nil
	}

	var out []string
	for name, stream := range doc.Streams() {
		p, err := ParseLnk(stream)
		if err != nil {
			idx.log.Debug("shell link stream skipped",
				zap.String("stream", name),
				zap.Error(fmt.Errorf("%w: %v", errtag.ErrLnkMalformed, err)))
			continue
		}
		out = append(out, p)
	}
	return out
}

func copyToTemp(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "windowanchor-jumplist-*.tmp")
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

// GetRecentFilesForApp resolves recent documents for an application in
// direct → handler → process-name order; the first tier returning a
// non-empty list wins, truncated to max. Never returns nil.
func (idx *Index) GetRecentFilesForApp(exe string, processName string, max int) []string {
	exe = strings.ToLower(exe)

	direct, ok := idx.directCache[exe]
	if !ok {
		// Synthesize the jump-list filename from the AppID hash and
		// parse that one file; works for applications that are installed
		// but not registered as the system handler for their file types.
		hash := ComputeAppIDHash(DefaultAppID(exe))
		direct = idx.parseFile(filepath.Join(idx.dir, hash+".automaticDestinations-ms"))
		idx.directCache[exe] = direct
	}
	if len(direct) > 0 {
		return truncate(direct, max)
	}

	// The handler index is keyed by full handler path; the exe we hold
	// may differ in casing or directory (per-user vs machine installs),
	// so compare by basename as well.
	if paths, ok := idx.byHandler[exe]; ok && len(paths) > 0 {
		return truncate(paths, max)
	}
	base := strings.ToLower(filepath.Base(exe))
	for handler, paths := range idx.byHandler {
		if strings.ToLower(filepath.Base(handler)) == base && len(paths) > 0 {
			return truncate(paths, max)
		}
	}

	if paths, ok := idx.byProcessName[strings.ToLower(processName)]; ok {
		return truncate(paths, max)
	}

	return []string{}
}

func truncate(paths []string, max int) []string {
	if max <= 0 || len(paths) <= max {
		return paths
	}
	return paths[:max]
}
