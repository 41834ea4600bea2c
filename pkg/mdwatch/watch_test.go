package mdwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sambeau/mdforge/pkg/mdlog"
)

func TestWatchFiresOnMarkdownFileWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(target, []byte("# hi"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	changed := make(chan string, 1)
	log := mdlog.NewBufferedLogger()
	w, err := Watch(dir, 10*time.Millisecond, func(path string) { changed <- path }, log)
	if err != nil {
		t.Fatalf("Watch error: %v", err)
	}
	defer w.Close()

	time.Sleep(20 * time.Millisecond) // let the watch list settle before writing
	if err := os.WriteFile(target, []byte("# hi\n\nmore"), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	select {
	case path := <-changed:
		if filepath.Base(path) != "doc.md" {
			t.Fatalf("expected doc.md changed, got %q", path)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for change callback")
	}
}

func TestWatchIgnoresNonMarkdownFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "notes.txt")
	os.WriteFile(target, []byte("x"), 0o644)

	changed := make(chan string, 1)
	w, err := Watch(dir, 10*time.Millisecond, func(path string) { changed <- path }, nil)
	if err != nil {
		t.Fatalf("Watch error: %v", err)
	}
	defer w.Close()

	time.Sleep(20 * time.Millisecond)
	os.WriteFile(target, []byte("y"), 0o644)

	select {
	case path := <-changed:
		t.Fatalf("expected no callback for non-.md file, got %q", path)
	case <-time.After(200 * time.Millisecond):
		// expected: no callback fired
	}
}

func TestChangeSeqIncrementsOnChange(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.md")
	os.WriteFile(target, []byte("# hi"), 0o644)

	done := make(chan struct{}, 1)
	w, err := Watch(dir, 10*time.Millisecond, func(path string) { done <- struct{}{} }, nil)
	if err != nil {
		t.Fatalf("Watch error: %v", err)
	}
	defer w.Close()

	if seq := w.ChangeSeq(); seq != 0 {
		t.Fatalf("expected initial seq 0, got %d", seq)
	}

	time.Sleep(20 * time.Millisecond)
	os.WriteFile(target, []byte("# hi\n\nchanged"), 0o644)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for change")
	}
	if seq := w.ChangeSeq(); seq == 0 {
		t.Fatalf("expected change seq to increment after a change")
	}
}
