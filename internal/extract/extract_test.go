package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

// writeZip builds a bundle-shaped zip: a wrapper folder containing files.
func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractZipReturnsTopLevel(t *testing.T) {
	src := writeZip(t, map[string]string{
		"labworkspace-main/submit.sh":          "#!/bin/sh\n",
		"labworkspace-main/lib/submit.jar":     "jarbytes",
		"labworkspace-main/scripts/collect.sh": "#!/bin/sh\n",
	})
	dest := t.TempDir()

	top, err := Extract(src, dest)
	if err != nil {
		t.Fatal(err)
	}
	if top != filepath.Join(dest, "labworkspace-main") {
		t.Errorf("top = %q, want the wrapper folder", top)
	}
	raw, err := os.ReadFile(filepath.Join(top, "lib", "submit.jar"))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "jarbytes" {
		t.Errorf("file content = %q", raw)
	}
}

func TestExtractTarGz(t *testing.T) {
	src := filepath.Join(t.TempDir(), "bundle.tar.gz")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	content := []byte("#!/bin/sh\n")
	if err := tw.WriteHeader(&tar.Header{
		Name:     "labworkspace-main/submit.sh",
		Mode:     0755,
		Size:     int64(len(content)),
		Typeflag: tar.TypeReg,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	dest := t.TempDir()
	top, err := Extract(src, dest)
	if err != nil {
		t.Fatal(err)
	}
	if top != filepath.Join(dest, "labworkspace-main") {
		t.Errorf("top = %q, want the wrapper folder", top)
	}
	if _, err := os.Stat(filepath.Join(top, "submit.sh")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
}

func TestExtractRejectsUnknownFormat(t *testing.T) {
	src := filepath.Join(t.TempDir(), "bundle.rar")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Extract(src, t.TempDir()); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	src := writeZip(t, map[string]string{
		"../evil.sh": "#!/bin/sh\n",
	})
	if _, err := Extract(src, t.TempDir()); err == nil {
		t.Error("expected an error for an entry escaping the destination")
	}
}
