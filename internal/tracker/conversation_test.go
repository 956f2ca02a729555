package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ashureev/codeedge/internal/domain"
	"github.com/ashureev/codeedge/internal/store"
)

func TestAppendKeepsLastTenInOrder(t *testing.T) {
	ctx := context.Background()
	tr := NewConversationTracker(store.NewMemory(), nil)

	for i := 1; i <= 13; i++ {
		if err := tr.Append(ctx, "u", fmt.Sprintf("q%d", i), fmt.Sprintf("r%d", i)); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	history := tr.History(ctx, "u")
	if len(history) != domain.MaxHistoryEntries {
		t.Fatalf("expected %d entries, got %d", domain.MaxHistoryEntries, len(history))
	}
	if history[0].Question != "q4" || history[9].Question != "q13" {
		t.Fatalf("unexpected window: first=%q last=%q", history[0].Question, history[9].Question)
	}
}

func TestAppendConcurrentNoLostEntries(t *testing.T) {
	ctx := context.Background()
	locks := NewLocks(nil)
	tr := NewConversationTracker(store.NewMemory(), locks)

	const workers = domain.MaxHistoryEntries
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := tr.Append(ctx, "shared", fmt.Sprintf("q%d", i), fmt.Sprintf("r%d", i)); err != nil {
				t.Errorf("Append %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	history := tr.History(ctx, "shared")
	if len(history) != workers {
		t.Fatalf("expected %d entries, got %d", workers, len(history))
	}
	seen := make(map[string]bool, workers)
	for _, entry := range history {
		seen[entry.Question] = true
	}
	for i := 0; i < workers; i++ {
		if q := fmt.Sprintf("q%d", i); !seen[q] {
			t.Fatalf("question %q was lost, history: %v", q, history)
		}
	}
	if n := locks.size(); n != 0 {
		t.Fatalf("expected lock entries to be released, %d remain", n)
	}
}

func TestHistoryUnknownUserIsEmpty(t *testing.T) {
	tr := NewConversationTracker(store.NewMemory(), nil)
	if got := tr.History(context.Background(), "nobody"); len(got) != 0 {
		t.Fatalf("expected empty history, got %v", got)
	}
}

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) GetHistory(context.Context, string) ([]domain.ConversationEntry, error) {
	return nil, errors.New("backend down")
}

func TestHistoryReadFailureYieldsEmpty(t *testing.T) {
	tr := NewConversationTracker(failingStore{store.NewMemory()}, nil)
	if got := tr.History(context.Background(), "u"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", got)
	}
	if err := tr.Append(context.Background(), "u", "q", "r"); err == nil {
		t.Fatal("expected Append to surface the store error")
	}
}

func TestFormatForPrompt(t *testing.T) {
	if got := FormatForPrompt(nil); got != "No previous conversation." {
		t.Fatalf("unexpected empty format: %q", got)
	}

	got := FormatForPrompt([]domain.ConversationEntry{
		{Question: "what is a heap?", Response: "a tree"},
		{Question: "thanks", Response: "You're welcome!"},
	})
	want := "Q1: what is a heap?\nA1: a tree\nQ2: thanks\nA2: You're welcome!"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
