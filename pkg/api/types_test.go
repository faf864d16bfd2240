package api

import (
	"io"
	"strings"
	"testing"
)

func TestMergeConfig(t *testing.T) {
	base := map[string]any{
		"endpoint": "https://a.example",
		"retries":  3,
		"nested":   map[string]any{"a": 1, "b": 2},
	}
	overrides := map[string]any{
		"retries": 5,
		"nested":  map[string]any{"b": 3, "c": 4},
		"extra":   true,
	}

	merged := MergeConfig(base, overrides)

	if merged["endpoint"] != "https://a.example" {
		t.Errorf("endpoint = %v", merged["endpoint"])
	}
	if merged["retries"] != 5 {
		t.Errorf("retries = %v, want override to win", merged["retries"])
	}
	if merged["extra"] != true {
		t.Errorf("extra = %v", merged["extra"])
	}

	nested, ok := merged["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested = %T, want map", merged["nested"])
	}
	if nested["a"] != 1 || nested["b"] != 3 || nested["c"] != 4 {
		t.Errorf("nested merge = %v", nested)
	}

	// Inputs must not be mutated.
	if base["retries"] != 3 {
		t.Error("base map was mutated")
	}
}

func TestMergeConfig_NilInputs(t *testing.T) {
	if got := MergeConfig(nil, map[string]any{"k": "v"}); got["k"] != "v" {
		t.Errorf("merge with nil base = %v", got)
	}
	if got := MergeConfig(map[string]any{"k": "v"}, nil); got["k"] != "v" {
		t.Errorf("merge with nil overrides = %v", got)
	}
}

func TestInferenceRequest_Echo(t *testing.T) {
	req := &InferenceRequest{Prompt: "x", Temperature: f(0.5), MaxTokens: i(64)}
	echo := req.Echo()

	if echo.Temperature == nil || *echo.Temperature != 0.5 {
		t.Errorf("Temperature = %v", echo.Temperature)
	}
	if echo.MaxTokens == nil || *echo.MaxTokens != 64 {
		t.Errorf("MaxTokens = %v", echo.MaxTokens)
	}
	if echo.TopP != nil {
		t.Errorf("TopP = %v, want nil", echo.TopP)
	}
}

func TestStreamHandle_Close(t *testing.T) {
	cancelled := false
	body := io.NopCloser(strings.NewReader("data"))

	h := NewStreamHandle("model-a", "text/event-stream", body, func() { cancelled = true })
	if !h.Streaming {
		t.Error("Streaming flag must be set")
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !cancelled {
		t.Error("Close must invoke the cancel func")
	}

	// Second close is a no-op.
	if err := h.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
