package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tangled.org/tokentrim.app/tokentrim"
)

func recovered(names ...string) []tokentrim.RecoveredFile {
	files := make([]tokentrim.RecoveredFile, len(names))
	for i, name := range names {
		files[i] = tokentrim.RecoveredFile{
			Index:    i,
			Filename: name,
			Content:  []byte("content of " + name + " #" + string(rune('0'+i))),
		}
	}
	return files
}

func TestTargetNames(t *testing.T) {
	t.Run("Duplicates", func(t *testing.T) {
		names, err := targetNames(recovered("a.txt", "dir/b.go", "a.txt", "a.txt"))
		if err != nil {
			t.Fatalf("targetNames failed: %v", err)
		}
		want := []string{"a.txt", filepath.Join("dir", "b.go"), "a.3.txt", "a.4.txt"}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("name %d = %q, want %q", i, names[i], want[i])
			}
		}
	})

	t.Run("RejectsEscapingPaths", func(t *testing.T) {
		for _, name := range []string{"../evil.txt", "/etc/passwd", "a/../../b"} {
			if _, err := targetNames(recovered(name)); err == nil {
				t.Errorf("expected %q to be rejected", name)
			}
		}
	})
}

func TestWriteRecovered(t *testing.T) {
	t.Run("WritesAll", func(t *testing.T) {
		dir := t.TempDir()
		files := recovered("a.txt", "nested/deep/b.txt", "a.txt")

		var progressed int
		written, err := writeRecovered(dir, files, false, func(tokentrim.RecoveredFile) { progressed++ })
		if err != nil {
			t.Fatalf("writeRecovered failed: %v", err)
		}
		if len(written) != 3 || progressed != 3 {
			t.Fatalf("written %d, progress %d", len(written), progressed)
		}

		for i, path := range written {
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read %s: %v", path, err)
			}
			if string(data) != string(files[i].Content) {
				t.Errorf("%s: content %q", path, data)
			}
		}

		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".tokentrim-staging-") {
				t.Errorf("staging directory %s left behind", e.Name())
			}
		}
	})

	t.Run("RefusesOverwrite", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("keep"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := writeRecovered(dir, recovered("a.txt", "b.txt"), false, nil)
		if err == nil {
			t.Fatal("expected error for existing file")
		}

		if _, err := os.Stat(filepath.Join(dir, "a.txt")); !os.IsNotExist(err) {
			t.Error("no file may be written when the decode is refused")
		}
		data, _ := os.ReadFile(filepath.Join(dir, "b.txt"))
		if string(data) != "keep" {
			t.Error("existing file was modified")
		}
	})

	t.Run("ForceOverwrites", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("old"), 0644); err != nil {
			t.Fatal(err)
		}

		files := recovered("a.txt")
		if _, err := writeRecovered(dir, files, true, nil); err != nil {
			t.Fatalf("writeRecovered failed: %v", err)
		}
		data, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
		if string(data) != string(files[0].Content) {
			t.Errorf("content %q", data)
		}
	})

	t.Run("UnsafePathWritesNothing", func(t *testing.T) {
		dir := t.TempDir()
		if _, err := writeRecovered(dir, recovered("ok.txt", "../escape.txt"), false, nil); err == nil {
			t.Fatal("expected error")
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("output directory not empty: %d entries", len(entries))
		}
	})
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel, content string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	mustWrite("src/main.go", "package main\n")
	mustWrite("src/util/b.py", "print(1)")
	mustWrite("src/.git/config", "[core]")
	mustWrite("README.md", "# hi")

	records, err := collectFiles([]string{filepath.Join(dir, "src"), filepath.Join(dir, "README.md")})
	if err != nil {
		t.Fatalf("collectFiles failed: %v", err)
	}

	want := []string{"main.go", "util/b.py", "README.md"}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, r := range records {
		if r.Filename != want[i] {
			t.Errorf("record %d = %q, want %q", i, r.Filename, want[i])
		}
	}
	if records[0].Language != "Go" || records[0].TokenCount != 4 {
		t.Errorf("metadata not filled: %+v", records[0])
	}
	if totalSize(records) != 13+8+4 {
		t.Errorf("total size %d", totalSize(records))
	}
}
