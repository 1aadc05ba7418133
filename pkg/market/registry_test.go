package market

import (
	"testing"
	"time"

	"github.com/wyvernlabs/predictcore/pkg/types"
)

func TestCreateRejectsDuplicateID(t *testing.T) {
	r := New()
	if _, err := r.Create("m1", "Will it rain?", time.Now()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.Create("m1", "Will it rain?", time.Now()); err == nil {
		t.Fatal("expected error on duplicate market ID")
	}
}

func TestResolveIsTerminal(t *testing.T) {
	r := New()
	r.Create("m1", "q", time.Now())
	if err := r.Resolve("m1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := r.Cancel("m1"); err == nil {
		t.Fatal("expected error transitioning a resolved market")
	}
}

func TestCancelIsTerminal(t *testing.T) {
	r := New()
	r.Create("m1", "q", time.Now())
	if err := r.Cancel("m1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := r.Resolve("m1"); err == nil {
		t.Fatal("expected error transitioning a cancelled market")
	}
}

func TestIsOpenReflectsStatus(t *testing.T) {
	r := New()
	r.Create("m1", "q", time.Now())
	if !r.IsOpen("m1") {
		t.Error("new market should be open")
	}
	r.Resolve("m1")
	if r.IsOpen("m1") {
		t.Error("resolved market should not be open")
	}
	if r.IsOpen("ghost") {
		t.Error("unknown market should not be open")
	}
}

func TestListOpenExcludesTerminalMarkets(t *testing.T) {
	r := New()
	r.Create("m1", "q1", time.Now())
	r.Create("m2", "q2", time.Now())
	r.Resolve("m2")

	open := r.ListOpen()
	if len(open) != 1 || open[0].ID != "m1" {
		t.Errorf("expected only m1 open, got %+v", open)
	}
}
