package sysinfo

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestDisk(t *testing.T) {
	dir := t.TempDir()

	usage, err := Disk(context.Background(), dir)
	if err != nil {
		t.Fatalf("Disk() error = %v", err)
	}
	if usage.Total == 0 {
		t.Error("expected non-zero total")
	}
	if usage.Path != dir {
		t.Errorf("expected path %s, got %s", dir, usage.Path)
	}
	if usage.UsedPercent < 0 || usage.UsedPercent > 100 {
		t.Errorf("used percent out of range: %f", usage.UsedPercent)
	}
}

func TestDisk_MissingPath(t *testing.T) {
	if _, err := Disk(context.Background(), "/nonexistent/path/for/sysinfo"); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestEnsureFree(t *testing.T) {
	dir := t.TempDir()

	if err := EnsureFree(context.Background(), dir, 0); err != nil {
		t.Errorf("zero requirement should always pass, got %v", err)
	}
	if err := EnsureFree(context.Background(), dir, 1); err != nil {
		t.Errorf("expected at least one free byte, got %v", err)
	}

	err := EnsureFree(context.Background(), dir, math.MaxUint64)
	if !errors.Is(err, ErrInsufficientSpace) {
		t.Errorf("expected ErrInsufficientSpace, got %v", err)
	}
}

func TestHost(t *testing.T) {
	summary := Host(context.Background())
	if summary == nil {
		t.Fatal("expected summary")
	}
	if summary.MemUsedPerc < 0 || summary.MemUsedPerc > 100 {
		t.Errorf("memory percent out of range: %f", summary.MemUsedPerc)
	}
}
