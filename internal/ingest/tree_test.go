package ingest

import (
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func init() {
	// Suppress logs during testing
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func TestDecodeTree(t *testing.T) {
	tests := []struct {
		name string
		tree string
		want []string
	}{
		{
			name: "flat listing",
			tree: strings.Join([]string{
				"├── README.md",
				"└── main.py",
			}, "\n"),
			want: []string{"README.md", "main.py"},
		},
		{
			name: "nested directories",
			tree: strings.Join([]string{
				"└── repo/",
				"    ├── src/",
				"    │   ├── app.py",
				"    │   └── util.py",
				"    └── README.md",
			}, "\n"),
			want: []string{"repo/src/app.py", "repo/src/util.py", "repo/README.md"},
		},
		{
			name: "bar continuation indent",
			tree: strings.Join([]string{
				"├── a/",
				"│   └── deep/",
				"│       └── file.go",
				"└── b.txt",
			}, "\n"),
			want: []string{"a/deep/file.go", "b.txt"},
		},
		{
			name: "symlink target stripped",
			tree: "└── link.py -> ../real.py",
			want: []string{"link.py"},
		},
		{
			name: "non-matching lines skipped",
			tree: strings.Join([]string{
				"Directory structure:",
				"",
				"└── only.txt",
			}, "\n"),
			want: []string{"only.txt"},
		},
		{
			name: "empty input",
			tree: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeTree(tt.tree)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeTree() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestDecodeTreeDepthProperty checks that every emitted path's segment
// count equals the node's indent depth plus one.
func TestDecodeTreeDepthProperty(t *testing.T) {
	tree := strings.Join([]string{
		"└── root/",
		"    ├── a/",
		"    │   ├── b/",
		"    │   │   └── deep.txt",
		"    │   └── mid.txt",
		"    └── top.txt",
	}, "\n")

	want := map[string]int{
		"root/a/b/deep.txt": 4,
		"root/a/mid.txt":    3,
		"root/top.txt":      2,
	}

	for _, path := range DecodeTree(tree) {
		segments := len(strings.Split(path, "/"))
		if want[path] == 0 {
			t.Fatalf("unexpected path %q", path)
		}
		if segments != want[path] {
			t.Errorf("path %q has %d segments, want %d", path, segments, want[path])
		}
	}
}

func TestDecodeTreeShallowerNodeClosesSubtrees(t *testing.T) {
	tree := strings.Join([]string{
		"├── a/",
		"│   └── b/",
		"│       └── leaf.txt",
		"└── sibling.txt",
	}, "\n")

	got := DecodeTree(tree)
	want := []string{"a/b/leaf.txt", "sibling.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeTree() = %v, want %v", got, want)
	}
}

func TestDecodeTreeIsPure(t *testing.T) {
	tree := "└── f.txt"
	first := DecodeTree(tree)
	second := DecodeTree(tree)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated decode differs: %v vs %v", first, second)
	}
}
