package domain

// MaxHistoryEntries bounds the per-user conversation history.
const MaxHistoryEntries = 10

// ConversationEntry is one tutor exchange.
type ConversationEntry struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

// TrimHistory keeps only the most recent MaxHistoryEntries entries.
func TrimHistory(history []ConversationEntry) []ConversationEntry {
	if len(history) <= MaxHistoryEntries {
		return history
	}
	return history[len(history)-MaxHistoryEntries:]
}
