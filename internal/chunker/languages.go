package chunker

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlainText is the fallback classification for unrecognized extensions.
const PlainText = "plaintext"

type languageEntry struct {
	language   string
	extensions []string
}

// LanguageTable maps extensions to a source-language classification. The
// table preserves the declaration order of its YAML source so that "first
// match wins" is deterministic when an extension is listed twice.
type LanguageTable struct {
	entries []languageEntry
}

// UnmarshalYAML decodes a mapping of language identifier to extension
// list, keeping the document order.
func (t *LanguageTable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("language table must be a mapping, got %v", node.Kind)
	}
	t.entries = nil
	for i := 0; i+1 < len(node.Content); i += 2 {
		var exts []string
		if err := node.Content[i+1].Decode(&exts); err != nil {
			return fmt.Errorf("extensions for %q: %w", node.Content[i].Value, err)
		}
		t.entries = append(t.entries, languageEntry{
			language:   node.Content[i].Value,
			extensions: exts,
		})
	}
	return nil
}

// NewLanguageTable builds a table from ordered (language, extensions)
// pairs; pairs must alternate language and extension list length-wise with
// langs[i] owning exts[i].
func NewLanguageTable(langs []string, exts [][]string) LanguageTable {
	t := LanguageTable{}
	for i, lang := range langs {
		t.entries = append(t.entries, languageEntry{language: lang, extensions: exts[i]})
	}
	return t
}

// Infer looks up an extension (leading dot, any case) and returns the
// first declared language owning it. The second return is false when the
// extension is unknown and the caller should fall back to plain text.
func (t LanguageTable) Infer(ext string) (string, bool) {
	ext = strings.ToLower(ext)
	for _, e := range t.entries {
		for _, candidate := range e.extensions {
			if strings.ToLower(candidate) == ext {
				return e.language, true
			}
		}
	}
	return PlainText, false
}

// Len returns the number of languages in the table.
func (t LanguageTable) Len() int { return len(t.entries) }

// LoadLanguageTable reads a YAML extension table, e.g.:
//
//	python: [".py"]
//	markdown: [".md", ".markdown"]
func LoadLanguageTable(path string) (LanguageTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return LanguageTable{}, fmt.Errorf("reading language table: %w", err)
	}
	var t LanguageTable
	if err := yaml.Unmarshal(b, &t); err != nil {
		return LanguageTable{}, fmt.Errorf("parsing language table: %w", err)
	}
	return t, nil
}

// DefaultLanguageTable returns the built-in extension table used when no
// configuration file is provided.
func DefaultLanguageTable() LanguageTable {
	return NewLanguageTable(
		[]string{
			"python", "go", "js", "ts", "java", "cpp", "c", "csharp",
			"ruby", "rust", "php", "swift", "kotlin", "scala",
			"markdown", "html", "proto",
		},
		[][]string{
			{".py"},
			{".go"},
			{".js", ".jsx", ".mjs"},
			{".ts", ".tsx"},
			{".java"},
			{".cpp", ".cc", ".cxx", ".hpp"},
			{".c", ".h"},
			{".cs"},
			{".rb"},
			{".rs"},
			{".php"},
			{".swift"},
			{".kt", ".kts"},
			{".scala"},
			{".md", ".markdown"},
			{".html", ".htm"},
			{".proto"},
		},
	)
}

// separatorsForLanguage returns the separator priority list for a
// language: most structural first, ending with the character-boundary
// last resort. Unlisted languages use the plain-text list.
func separatorsForLanguage(lang string) []string {
	switch lang {
	case "python":
		return []string{"\nclass ", "\ndef ", "\n\tdef ", "\n\n", "\n", " ", ""}
	case "go":
		return []string{"\nfunc ", "\nvar ", "\nconst ", "\ntype ", "\nif ", "\nfor ", "\nswitch ", "\ncase ", "\n\n", "\n", " ", ""}
	case "js", "ts":
		return []string{"\nfunction ", "\nconst ", "\nlet ", "\nvar ", "\nclass ", "\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ", "\ndefault ", "\n\n", "\n", " ", ""}
	case "java", "csharp", "cpp", "c":
		return []string{"\nclass ", "\npublic ", "\nprotected ", "\nprivate ", "\nstatic ", "\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ", "\n\n", "\n", " ", ""}
	case "ruby":
		return []string{"\ndef ", "\nclass ", "\nif ", "\nunless ", "\nwhile ", "\nfor ", "\ndo ", "\nbegin ", "\nrescue ", "\n\n", "\n", " ", ""}
	case "rust":
		return []string{"\nfn ", "\nconst ", "\nlet ", "\nif ", "\nwhile ", "\nfor ", "\nloop ", "\nmatch ", "\nconst ", "\n\n", "\n", " ", ""}
	case "php":
		return []string{"\nfunction ", "\nclass ", "\nif ", "\nforeach ", "\nwhile ", "\ndo ", "\nswitch ", "\ncase ", "\n\n", "\n", " ", ""}
	case "swift":
		return []string{"\nfunc ", "\nclass ", "\nstruct ", "\nenum ", "\nif ", "\nfor ", "\nwhile ", "\ndo ", "\nswitch ", "\ncase ", "\n\n", "\n", " ", ""}
	case "kotlin":
		return []string{"\nfun ", "\nclass ", "\nif ", "\nfor ", "\nwhile ", "\nwhen ", "\ncase ", "\nelse ", "\n\n", "\n", " ", ""}
	case "scala":
		return []string{"\nclass ", "\nobject ", "\ndef ", "\nval ", "\nvar ", "\nif ", "\nfor ", "\nwhile ", "\nmatch ", "\ncase ", "\n\n", "\n", " ", ""}
	case "markdown":
		return []string{"\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ", "```\n\n", "\n\n***\n\n", "\n\n---\n\n", "\n\n___\n\n", "\n\n", "\n", " ", ""}
	case "html":
		return []string{"<body>", "<div>", "<p>", "<br>", "<li>", "<h1>", "<h2>", "<h3>", "<h4>", "<h5>", "<h6>", "<span>", "<table>", "<tr>", "<td>", "<th>", "<ul>", "<ol>", "<header>", "<footer>", "<nav>", "<head>", "<style>", "<script>", "<meta>", "<title>", ""}
	case "proto":
		return []string{"\nmessage ", "\nservice ", "\nenum ", "\noption ", "\nimport ", "\nsyntax ", "\n\n", "\n", " ", ""}
	default:
		return plainTextSeparators()
	}
}

// plainTextSeparators is the language-agnostic fallback priority list.
func plainTextSeparators() []string {
	return []string{"\n\n", "\n", " ", ""}
}
