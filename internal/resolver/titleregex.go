package resolver

import (
	"os"
	"regexp"
	"strings"
)

// titleRule maps a lowercased, extension-stripped process name to a regex
// carrying a named "file" capture group.
type titleRule struct {
	pattern *regexp.Regexp
}

var titleRules = map[string]titleRule{
	"notepad":   {regexp.MustCompile(`^(?P<file>.+) - Notepad$`)},
	"winword":   {regexp.MustCompile(`^(?P<file>.+) - Word$`)},
	"excel":     {regexp.MustCompile(`^(?P<file>.+) - Excel$`)},
	"powerpnt":  {regexp.MustCompile(`^(?P<file>.+) - PowerPoint$`)},
	"code":      {regexp.MustCompile(`^(?P<file>.+) - Visual Studio Code$`)},
	"cursor":    {regexp.MustCompile(`^(?P<file>.+) - Cursor$`)},
	"acrord32":  {regexp.MustCompile(`^(?P<file>.+) - Adobe Acrobat Reader.*$`)},
	"notepad++": {regexp.MustCompile(`^(?P<file>.+) - Notepad\+\+$`)},
}

var decorationStrip = strings.NewReplacer("*", "", "•", "", "●", "")

// tier1 resolves the title-regex tier. It returns ("", 0, "") when no rule
// matches or the capture is empty.
func tier1(processName, title string) (path string, confidence int, bareFilename string) {
	rule, ok := titleRules[strings.ToLower(processName)]
	if !ok {
		return "", 0, ""
	}
	m := rule.pattern.FindStringSubmatch(title)
	if m == nil {
		return "", 0, ""
	}
	idx := rule.pattern.SubexpIndex("file")
	if idx < 0 || idx >= len(m) {
		return "", 0, ""
	}
	captured := strings.TrimSpace(decorationStrip.Replace(m[idx]))
	if captured == "" {
		return "", 0, ""
	}

	if strings.ContainsAny(captured, `\/`) {
		if info, err := os.Stat(captured); err == nil && !info.IsDir() {
			return captured, 90, ""
		}
		// Looks like a path but doesn't exist on disk: no confident
		// result, and it is not a bare filename either.
		return "", 0, ""
	}

	// Bare filename, no directory separator: confidence 40, eligible for
	// Tier 1.5's exact jump-list lookup.
	return "", 40, captured
}
