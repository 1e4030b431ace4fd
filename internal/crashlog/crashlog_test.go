package crashlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileName(t *testing.T) {
	got := FileName(time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC))
	if got != "crash-20240309-140507.log" {
		t.Fatalf("FileName = %q", got)
	}
}

func TestReportWritesTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	r := New(dir)
	r.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local) }

	path, err := r.Report("startup", errors.New("open display: refused"))
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if filepath.Base(path) != "crash-20240102-030405.log" {
		t.Fatalf("unexpected path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(data)
	for _, want := range []string{"failure in startup", "open display: refused", "pid:", "goroutine"} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}

func TestRecoverWritesAndExits(t *testing.T) {
	r := New(t.TempDir())
	code := -1
	r.exit = func(c int) { code = c }

	func() {
		defer r.Recover("owner")
		panic("boom")
	}()

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	entries, err := os.ReadDir(r.Dir())
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one crash file, got %v (%v)", entries, err)
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	r := New(t.TempDir())
	r.exit = func(int) { t.Fatal("exit should not be called") }

	func() {
		defer r.Recover("owner")
	}()
}
