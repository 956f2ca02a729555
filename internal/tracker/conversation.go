package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/codeedge/internal/domain"
	"github.com/ashureev/codeedge/internal/store"
)

const noHistoryText = "No previous conversation."

// ConversationTracker keeps the bounded tutor history for each user.
type ConversationTracker struct {
	store store.Store
	locks *Locks
}

// NewConversationTracker creates a tracker over s. locks may be shared with
// other trackers.
func NewConversationTracker(s store.Store, locks *Locks) *ConversationTracker {
	if locks == nil {
		locks = NewLocks(nil)
	}
	return &ConversationTracker{store: s, locks: locks}
}

// History returns the user's conversation, oldest first. Read failures are
// logged and reported as an empty history so the tutor flow keeps working.
func (t *ConversationTracker) History(ctx context.Context, userID string) []domain.ConversationEntry {
	history, err := t.store.GetHistory(ctx, userID)
	if err != nil {
		slog.Warn("Failed to load conversation history", "user_id", userID, "error", err)
		return []domain.ConversationEntry{}
	}
	return domain.TrimHistory(history)
}

// Append records an exchange and keeps only the most recent entries.
func (t *ConversationTracker) Append(ctx context.Context, userID, question, response string) error {
	return t.locks.WithLock(ctx, "history:"+userID, func(ctx context.Context) error {
		history, err := t.store.GetHistory(ctx, userID)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		history = append(history, domain.ConversationEntry{Question: question, Response: response})
		if err := t.store.SaveHistory(ctx, userID, domain.TrimHistory(history)); err != nil {
			return fmt.Errorf("save history: %w", err)
		}
		return nil
	})
}

// FormatForPrompt renders history as numbered Q/A lines for a tutor prompt.
func FormatForPrompt(history []domain.ConversationEntry) string {
	if len(history) == 0 {
		return noHistoryText
	}

	lines := make([]string, 0, len(history)*2)
	for i, entry := range history {
		lines = append(lines,
			fmt.Sprintf("Q%d: %s", i+1, entry.Question),
			fmt.Sprintf("A%d: %s", i+1, entry.Response),
		)
	}
	return strings.Join(lines, "\n")
}
