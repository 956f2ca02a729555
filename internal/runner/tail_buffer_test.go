package runner

import (
	"strings"
	"testing"
)

func TestTailBufferUnderCapacity(t *testing.T) {
	b := NewTailBuffer(8)
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("de"))
	if got := b.String(); got != "abcde" {
		t.Fatalf("expected abcde, got %q", got)
	}
	if b.Truncated() {
		t.Fatal("should not be truncated")
	}
}

func TestTailBufferExactlyFull(t *testing.T) {
	b := NewTailBuffer(4)
	_, _ = b.Write([]byte("ab"))
	_, _ = b.Write([]byte("cd"))
	if got := b.String(); got != "abcd" {
		t.Fatalf("expected abcd, got %q", got)
	}
	if b.Truncated() {
		t.Fatal("exactly full is not truncated")
	}
}

func TestTailBufferWrapsKeepingTail(t *testing.T) {
	b := NewTailBuffer(5)
	for _, chunk := range []string{"abc", "def", "gh"} {
		n, err := b.Write([]byte(chunk))
		if err != nil || n != len(chunk) {
			t.Fatalf("Write(%q) = %d, %v", chunk, n, err)
		}
	}
	if got := b.String(); got != "defgh" {
		t.Fatalf("expected defgh, got %q", got)
	}
	if !b.Truncated() {
		t.Fatal("expected truncation")
	}
}

func TestTailBufferLargeWrite(t *testing.T) {
	b := NewTailBuffer(4)
	_, _ = b.Write([]byte("x"))
	_, _ = b.Write([]byte(strings.Repeat("y", 10) + "1234"))
	if got := b.String(); got != "1234" {
		t.Fatalf("expected 1234, got %q", got)
	}
	_, _ = b.Write([]byte("56"))
	if got := b.String(); got != "3456" {
		t.Fatalf("expected 3456, got %q", got)
	}
}
