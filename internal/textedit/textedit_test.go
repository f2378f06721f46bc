package textedit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func countOccurrences(content, line string) int {
	n := 0
	for _, l := range strings.Split(content, "\n") {
		if l == line {
			n++
		}
	}
	return n
}

func TestEnsureLineAppendsOnce(t *testing.T) {
	path := writeFile(t, "existing content\n")

	if err := EnsureLine(path, "export FOO=bar"); err != nil {
		t.Fatalf("first EnsureLine: %v", err)
	}
	if got := countOccurrences(readFile(t, path), "export FOO=bar"); got != 1 {
		t.Fatalf("occurrences after first call = %d, want 1", got)
	}
}

func TestEnsureLineIsIdempotent(t *testing.T) {
	path := writeFile(t, "existing content\n")

	if err := EnsureLine(path, "export FOO=bar"); err != nil {
		t.Fatal(err)
	}
	after := readFile(t, path)

	// Repeated calls must not duplicate the line or change the file at all.
	for i := 0; i < 3; i++ {
		if err := EnsureLine(path, "export FOO=bar"); err != nil {
			t.Fatal(err)
		}
	}
	if got := readFile(t, path); got != after {
		t.Errorf("file changed on repeated EnsureLine:\nfirst: %q\nlater: %q", after, got)
	}
	if got := countOccurrences(readFile(t, path), "export FOO=bar"); got != 1 {
		t.Errorf("occurrences = %d, want 1", got)
	}
}

func TestEnsureLineMissingFile(t *testing.T) {
	if err := EnsureLine(filepath.Join(t.TempDir(), "nope"), "line"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestReplaceOrAppend(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "replaces matching prefix in place",
			content: "top\nexport LAB_HOME=\"/old\"\nbottom\n",
			want:    "top\nexport LAB_HOME=\"/new\"\nbottom\n",
		},
		{
			name:    "appends when no prefix matches",
			content: "top\nbottom\n",
			want:    "top\nbottom\nexport LAB_HOME=\"/new\"\n",
		},
		{
			name:    "no-op when already converged",
			content: "top\nexport LAB_HOME=\"/new\"\nbottom\n",
			want:    "top\nexport LAB_HOME=\"/new\"\nbottom\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.content)
			if err := ReplaceOrAppend(path, "export LAB_HOME=", `export LAB_HOME="/new"`); err != nil {
				t.Fatal(err)
			}
			if got := readFile(t, path); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplaceOrAppendConverges(t *testing.T) {
	path := writeFile(t, "export LAB_HOME=\"/old\"\n")
	if err := ReplaceOrAppend(path, "export LAB_HOME=", `export LAB_HOME="/new"`); err != nil {
		t.Fatal(err)
	}
	after := readFile(t, path)

	// A second application with identical arguments must be a no-op.
	if err := ReplaceOrAppend(path, "export LAB_HOME=", `export LAB_HOME="/new"`); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != after {
		t.Errorf("second application changed the file:\nfirst: %q\nsecond: %q", after, got)
	}
}

func TestReplaceExact(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantStatus Status
		wantInFile string
	}{
		{
			name:       "replaces and verifies",
			content:    "A=\"x\"\nB=\"y\"\n",
			wantStatus: Replaced,
			wantInFile: "A=\"/abs/x\"\nB=\"y\"\n",
		},
		{
			name:       "already applied",
			content:    "A=\"/abs/x\"\nB=\"y\"\n",
			wantStatus: AlreadyApplied,
			wantInFile: "A=\"/abs/x\"\nB=\"y\"\n",
		},
		{
			name:       "skipped when old line missing",
			content:    "B=\"y\"\n",
			wantStatus: Skipped,
			wantInFile: "B=\"y\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.content)
			status, err := ReplaceExact(path, `A="x"`, `A="/abs/x"`)
			if err != nil {
				t.Fatal(err)
			}
			if status != tt.wantStatus {
				t.Errorf("status = %v, want %v", status, tt.wantStatus)
			}
			if got := readFile(t, path); got != tt.wantInFile {
				t.Errorf("file = %q, want %q", got, tt.wantInFile)
			}
		})
	}
}

func TestHasLinePrefix(t *testing.T) {
	path := writeFile(t, "something\nlab() {\n  true\n}\n")

	ok, err := HasLinePrefix(path, "lab() {")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected prefix to be found")
	}

	ok, err = HasLinePrefix(path, "labx() {")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("did not expect prefix to be found")
	}
}
