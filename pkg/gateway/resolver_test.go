package gateway

import (
	"context"
	"testing"

	"github.com/modelgate/modelgate/pkg/provider"
)

// stubProvider is a named do-nothing provider for resolver tests.
type stubProvider struct {
	name string
}

var _ provider.Provider = (*stubProvider)(nil)

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{}
}
func (s *stubProvider) Infer(context.Context, *provider.Request) (*provider.Response, error) {
	return nil, nil
}
func (s *stubProvider) Stream(context.Context, *provider.Request) (*provider.StreamConn, error) {
	return nil, nil
}
func (s *stubProvider) Close() error { return nil }

func testProviders() Providers {
	return Providers{
		Completion: &stubProvider{name: "completion"},
		Transcribe: &stubProvider{name: "transcribe"},
		Image:      &stubProvider{name: "image"},
		Chat:       &stubProvider{name: "chat"},
		Generic:    &stubProvider{name: "generic"},
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(testProviders(), Rules{})

	tests := []struct {
		modelID string
		want    string
	}{
		{"gpt-4o-mini", "completion"},
		{"gpt-3.5-turbo", "completion"},
		{"o1-preview", "completion"},
		{"text-davinci-003", "completion"},
		{"whisper-1", "transcribe"},
		{"dall-e-3", "image"},
		{"dall-e-2", "image"},
		{"claude-3-haiku", "chat"},
		{"org/custom-model", "generic"},
		{"llama-7b", "generic"},
		{"", "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			p := r.Resolve(tt.modelID)
			if p == nil {
				t.Fatal("Resolve returned nil")
			}
			if p.Name() != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.modelID, p.Name(), tt.want)
			}
		})
	}
}

func TestResolve_TranscriptionMatchesExactly(t *testing.T) {
	r := NewResolver(testProviders(), Rules{})

	// A transcription id is an exact match, not a prefix.
	if p := r.Resolve("whisper-1-turbo"); p.Name() != "generic" {
		t.Errorf("Resolve(whisper-1-turbo) = %q, want generic", p.Name())
	}
}

func TestResolve_OrderedFirstMatchWins(t *testing.T) {
	// An id matching both a completion prefix and a chat prefix resolves to
	// the completion adapter because its rule comes first.
	r := NewResolver(testProviders(), Rules{
		CompletionPrefixes: []string{"shared-"},
		ChatPrefixes:       []string{"shared-"},
	})

	if p := r.Resolve("shared-model"); p.Name() != "completion" {
		t.Errorf("Resolve(shared-model) = %q, want completion", p.Name())
	}
}

func TestResolve_CustomRules(t *testing.T) {
	r := NewResolver(testProviders(), Rules{
		CompletionPrefixes: []string{"vendor-"},
		TranscriptionIDs:   []string{"stt-large"},
	})

	if p := r.Resolve("vendor-big"); p.Name() != "completion" {
		t.Errorf("Resolve(vendor-big) = %q", p.Name())
	}
	if p := r.Resolve("stt-large"); p.Name() != "transcribe" {
		t.Errorf("Resolve(stt-large) = %q", p.Name())
	}
	// Default prefixes are replaced, not merged.
	if p := r.Resolve("gpt-4o"); p.Name() != "generic" {
		t.Errorf("Resolve(gpt-4o) = %q, want generic under custom rules", p.Name())
	}
}
