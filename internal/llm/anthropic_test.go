package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicGatewayComplete(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
		Temperature *float64 `json:"temperature"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "Use a hash map."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	g := NewAnthropic("test-key", srv.URL, "claude-test")
	text, err := g.Complete(context.Background(), Request{
		Messages:    []Message{System("tutor persona"), User("how?")},
		Temperature: Float(0.7),
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "Use a hash map." {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Model != "claude-test" || got.MaxTokens != anthropicDefaultMaxTokens {
		t.Fatalf("unexpected model/max_tokens: %q/%d", got.Model, got.MaxTokens)
	}
	if len(got.System) != 1 || got.System[0].Text != "tutor persona" {
		t.Fatalf("system prompt not sent separately: %+v", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.Temperature == nil || *got.Temperature != 0.7 {
		t.Fatalf("unexpected temperature: %v", got.Temperature)
	}
}
