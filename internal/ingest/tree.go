package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// treeLineRe matches one node line of the dump's directory listing:
// an indent made of 4-rune units (four spaces or a vertical-bar
// continuation), a branch or corner marker, then the node name. Names keep
// a trailing "/" for directories and may carry a " -> target" suffix for
// symlinks. Lines that do not match, including lines whose indent is not a
// whole number of units, are skipped.
var treeLineRe = regexp.MustCompile(`^((?:    |│   )*)(?:└── |├── )(.+)$`)

const symlinkArrow = " -> "

// DecodeTree parses an indented directory listing into the ordered set of
// full file paths it declares, joined with "/". Directory nodes (trailing
// path separator) contribute ancestry only; symlink targets are stripped
// and never followed. The function is pure: it holds no state between
// calls and may be restarted on the same text.
func DecodeTree(tree string) []string {
	var files []string
	var stack []string

	for _, line := range strings.Split(tree, "\n") {
		m := treeLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		depth := utf8.RuneCountInString(m[1]) / 4
		if depth < len(stack) {
			// A shallower node closes every open subtree below it.
			stack = stack[:depth]
		}

		name := m[2]
		isDir := strings.HasSuffix(name, "/")
		name = strings.TrimSuffix(name, "/")
		if i := strings.Index(name, symlinkArrow); i >= 0 {
			name = name[:i]
		}

		stack = append(stack, name)
		if !isDir {
			files = append(files, strings.Join(stack, "/"))
		}
	}

	return files
}
