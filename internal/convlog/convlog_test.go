package convlog

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/codeedge/internal/config"
)

func TestFileLoggerWritesPerUserNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(config.ConversationLogConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(Event{
		UserID:     "user-1",
		Channel:    ChannelHTTP,
		Direction:  "outbound",
		EventType:  "tutor_question",
		ContentRaw: "why does this loop?\r\n",
	})

	path := filepath.Join(dir, userDirName("user-1"), ChannelHTTP+".ndjson")
	line := waitForLogLine(t, path)
	var got Event
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.ContentRaw != "why does this loop?\r\n" {
		t.Fatalf("unexpected ContentRaw: %q", got.ContentRaw)
	}
	if got.Content != "why does this loop?" {
		t.Fatalf("unexpected cleaned content: %q", got.Content)
	}
	if got.Timestamp == "" {
		t.Fatal("expected timestamp to be filled in")
	}
}

func TestCloseFlushesQueuedEvents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(config.ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 64}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		logger.Log(Event{UserID: "u", Channel: ChannelWebSocket, EventType: "tutor_answer", ContentRaw: "a"})
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Logging after Close is ignored.
	logger.Log(Event{UserID: "u", Channel: ChannelWebSocket})

	data, err := os.ReadFile(filepath.Join(dir, userDirName("u"), ChannelWebSocket+".ndjson"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 20 {
		t.Fatalf("expected 20 lines, got %d", n)
	}
}

func TestDisabledIsNoop(t *testing.T) {
	logger, err := New(config.ConversationLogConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := logger.(Noop); !ok {
		t.Fatalf("expected Noop, got %T", logger)
	}
}

func TestSafeNameKeepsOnePathElement(t *testing.T) {
	tests := map[string]string{
		"default":      "default",
		"../../etc":    "etc",
		"a/b":          "a_b",
		"":             "unknown",
		"user@example": "user_example",
	}
	for in, want := range tests {
		if got := safeName(in); got != want {
			t.Errorf("safeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUserDirNameSeparatesLookalikeIDs(t *testing.T) {
	t.Parallel()

	slash, underscore := userDirName("a/b"), userDirName("a_b")
	if slash == underscore {
		t.Fatalf("expected distinct dirs, both got %q", slash)
	}
	for _, name := range []string{slash, underscore} {
		if !strings.HasPrefix(name, "a_b-") || strings.ContainsAny(name, `/\`) {
			t.Fatalf("unexpected dir name %q", name)
		}
	}
	if userDirName("a/b") != slash {
		t.Fatal("dir name must be stable for the same id")
	}
}

func TestFileLoggerKeepsLookalikeUsersApart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(config.ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 8}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Log(Event{UserID: "a/b", Channel: ChannelHTTP, ContentRaw: "slash"})
	logger.Log(Event{UserID: "a_b", Channel: ChannelHTTP, ContentRaw: "underscore"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read log dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected one directory per user, got %d", len(entries))
	}
	for id, want := range map[string]string{"a/b": "slash", "a_b": "underscore"} {
		data, err := os.ReadFile(filepath.Join(dir, userDirName(id), ChannelHTTP+".ndjson"))
		if err != nil {
			t.Fatalf("read log for %q: %v", id, err)
		}
		if n := strings.Count(string(data), "\n"); n != 1 || !strings.Contains(string(data), want) {
			t.Fatalf("log for %q mixed or missing entries: %q", id, data)
		}
	}
}

func TestCleanForReadabilityStripsANSI(t *testing.T) {
	t.Parallel()

	clean := CleanForReadability("\x1b[31merror\x1b[0m plain\n\n\n\nnext")
	if strings.Contains(clean, "\x1b[31m") {
		t.Fatalf("expected ANSI sequence to be stripped: %q", clean)
	}
	if clean != "error plain\n\nnext" {
		t.Fatalf("unexpected cleaned text: %q", clean)
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}
