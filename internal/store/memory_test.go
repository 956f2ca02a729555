package store

import (
	"context"
	"testing"

	"github.com/ashureev/codeedge/internal/domain"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestMemoryStoreCopiesState(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	history := []domain.ConversationEntry{{Question: "q", Response: "r"}}
	if err := s.SaveHistory(ctx, "u", history); err != nil {
		t.Fatalf("SaveHistory failed: %v", err)
	}
	history[0].Question = "mutated"

	got, _ := s.GetHistory(ctx, "u")
	if got[0].Question != "q" {
		t.Fatalf("store shares slice with caller: %q", got[0].Question)
	}

	rec := domain.NewProgressRecord("u")
	if err := s.SaveProgress(ctx, rec); err != nil {
		t.Fatalf("SaveProgress failed: %v", err)
	}
	rec.EasySolved = 99

	stored, _ := s.GetProgress(ctx, "u")
	if stored.EasySolved != 0 {
		t.Fatalf("store shares record with caller: %d", stored.EasySolved)
	}
}
