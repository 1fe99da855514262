package gate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type failingVolume struct{}

func (failingVolume) Free(context.Context) (int64, error) {
	return 0, errors.New("no card")
}

// #region check-tests

func TestCheckCommitsWhenSpaceAvailable(t *testing.T) {
	g := NewGate(FixedVolume(4096))
	d := g.Check(context.Background(), 1000)
	if !d.Allowed() {
		t.Fatalf("expected commit, got %s (%s)", d.Action, d.Reason)
	}
	if d.Vetoed || d.Veto != nil {
		t.Fatal("commit must not carry a veto")
	}
	if d.Free != 4096 || d.Required != 1000 {
		t.Fatalf("unexpected accounting: %+v", d)
	}
}

func TestCheckRejectsWhenRequiredExceedsFree(t *testing.T) {
	g := NewGate(FixedVolume(512))
	d := g.Check(context.Background(), 1000)
	if d.Allowed() {
		t.Fatal("expected reject")
	}
	if d.Veto == nil || d.Veto.Type != VetoInsufficientSpace {
		t.Fatalf("expected insufficient space veto, got %+v", d.Veto)
	}
}

func TestCheckRejectsExactFit(t *testing.T) {
	d := NewGate(FixedVolume(1000)).Check(context.Background(), 1000)
	if d.Allowed() {
		t.Fatal("a write that exhausts the volume must be refused")
	}
}

func TestCheckRejectsOnVolumeError(t *testing.T) {
	d := NewGate(failingVolume{}).Check(context.Background(), 1)
	if d.Allowed() {
		t.Fatal("expected reject")
	}
	if d.Veto == nil || d.Veto.Type != VetoVolumeError {
		t.Fatalf("expected volume error veto, got %+v", d.Veto)
	}
}

// #endregion check-tests

// #region volume-tests

func TestBudgetVolumeSubtractsStoredFiles(t *testing.T) {
	dir := t.TempDir()
	v, err := NewBudgetVolume(dir, "2KB")
	if err != nil {
		t.Fatalf("NewBudgetVolume: %v", err)
	}

	free, err := v.Free(context.Background())
	if err != nil {
		t.Fatalf("Free: %v", err)
	}
	if free != 2048 {
		t.Fatalf("expected 2048 free, got %d", free)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.log"), make([]byte, 1000), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	free, err = v.Free(context.Background())
	if err != nil {
		t.Fatalf("Free: %v", err)
	}
	if free != 1048 {
		t.Fatalf("expected 1048 free, got %d", free)
	}
}

func TestBudgetVolumeRejectsBadBudget(t *testing.T) {
	if _, err := NewBudgetVolume(t.TempDir(), "lots"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestBudgetVolumeMissingDir(t *testing.T) {
	v := &BudgetVolume{Dir: filepath.Join(t.TempDir(), "missing"), Budget: 1024}
	d := NewGate(v).Check(context.Background(), 10)
	if d.Allowed() {
		t.Fatal("missing directory must be reported as a reject")
	}
}

// #endregion volume-tests
