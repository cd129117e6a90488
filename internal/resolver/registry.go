package resolver

import (
	"os"
	"strings"
	"sync"

	"github.com/windowanchor/workspaced/internal/errtag"
	"go.uber.org/zap"
	"golang.org/x/sys/windows/registry"
)

// handlerCache resolves a file extension to the lowercased handler
// executable path, cached per extension for the process lifetime.
type handlerCache struct {
	log   *zap.Logger
	mu    sync.Mutex
	cache map[string]string
}

func newHandlerCache(log *zap.Logger) *handlerCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &handlerCache{log: log, cache: make(map[string]string)}
}

// resolve walks the registry for ext's handler: per-user extension choice
// first, then machine-wide progid, then shell\open\command, parsed for the
// first quoted or unquoted token, env-expanded, lowercased. On any
// registry miss it returns "" and the caller continues with the
// process-name and direct indices.
func (h *handlerCache) resolve(ext string) string {
	ext = strings.ToLower(ext)
	h.mu.Lock()
	if v, ok := h.cache[ext]; ok {
		h.mu.Unlock()
		return v
	}
	h.mu.Unlock()

	progID := perUserChoice(ext)
	if progID == "" {
		progID = machineWideProgID(ext)
	}
	handler := ""
	if progID != "" {
		handler = shellOpenCommandExe(progID)
	}
	handler = firstToken(handler)
	handler = os.ExpandEnv(handler)
	handler = strings.ToLower(handler)
	if handler == "" {
		h.log.Debug("no registered handler for extension",
			zap.String("ext", ext), zap.Error(errtag.ErrRegistryMiss))
	}

	h.mu.Lock()
	h.cache[ext] = handler
	h.mu.Unlock()
	return handler
}

func perUserChoice(ext string) string {
	keyPath := `Software\Microsoft\Windows\CurrentVersion\Explorer\FileExts\` + ext + `\UserChoice`
	k, err := registry.OpenKey(registry.CURRENT_USER, keyPath, registry.QUERY_VALUE)
	if err != nil {
		return ""
	}
	defer k.Close()
	v, _, err := k.GetStringValue("ProgId")
	if err != nil {
		return ""
	}
	return v
}

func machineWideProgID(ext string) string {
	k, err := registry.OpenKey(registry.CLASSES_ROOT, ext, registry.QUERY_VALUE)
	if err != nil {
		return ""
	}
	defer k.Close()
	v, _, err := k.GetStringValue("")
	if err != nil || v == "" {
		return ext
	}
	return v
}

func shellOpenCommandExe(progID string) string {
	keyPath := progID + `\shell\open\command`
	k, err := registry.OpenKey(registry.CLASSES_ROOT, keyPath, registry.QUERY_VALUE)
	if err != nil {
		return ""
	}
	defer k.Close()
	v, _, err := k.GetStringValue("")
	if err != nil {
		return ""
	}
	return v
}

// firstToken extracts the leading quoted or unquoted executable token from
// a shell command string like `"C:\Program Files\App\app.exe" "%1"`.
func firstToken(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return ""
	}
	if cmd[0] == '"' {
		if end := strings.Index(cmd[1:], `"`); end >= 0 {
			return cmd[1 : 1+end]
		}
		return cmd[1:]
	}
	if sp := strings.IndexByte(cmd, ' '); sp >= 0 {
		return cmd[:sp]
	}
	return cmd
}
