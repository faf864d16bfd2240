package gateway

import (
	"strings"

	"github.com/modelgate/modelgate/pkg/provider"
)

// Providers holds the adapter for each backend class the resolver can
// dispatch to.
type Providers struct {
	Completion provider.Provider
	Transcribe provider.Provider
	Image      provider.Provider
	Chat       provider.Provider
	Generic    provider.Provider
}

// Rules are the ordered model-id patterns the resolver matches against.
// Prefix lists match with strings.HasPrefix; transcription ids match
// exactly.
type Rules struct {
	CompletionPrefixes []string
	TranscriptionIDs   []string
	ImagePrefixes      []string
	ChatPrefixes       []string
}

// DefaultRules returns the built-in model-id patterns.
func DefaultRules() Rules {
	return Rules{
		CompletionPrefixes: []string{"gpt-", "o1", "text-"},
		TranscriptionIDs:   []string{"whisper-1"},
		ImagePrefixes:      []string{"dall-e"},
		ChatPrefixes:       []string{"claude-"},
	}
}

// Resolver maps a model id to a provider using ordered pattern rules.
type Resolver struct {
	providers Providers
	rules     Rules
}

// NewResolver creates a resolver over the given adapters. A zero-valued
// Rules falls back to DefaultRules.
func NewResolver(providers Providers, rules Rules) *Resolver {
	if len(rules.CompletionPrefixes) == 0 && len(rules.TranscriptionIDs) == 0 &&
		len(rules.ImagePrefixes) == 0 && len(rules.ChatPrefixes) == 0 {
		rules = DefaultRules()
	}
	return &Resolver{providers: providers, rules: rules}
}

// Resolve returns the provider for a model id. Rules are evaluated
// top-to-bottom, first match wins; ids matching nothing fall through to the
// generic adapter, so Resolve is total and never fails. Whether an unmatched
// id actually exists is decided by the generic adapter's own backend call.
func (r *Resolver) Resolve(modelID string) provider.Provider {
	for _, prefix := range r.rules.CompletionPrefixes {
		if strings.HasPrefix(modelID, prefix) {
			return r.providers.Completion
		}
	}
	for _, id := range r.rules.TranscriptionIDs {
		if modelID == id {
			return r.providers.Transcribe
		}
	}
	for _, prefix := range r.rules.ImagePrefixes {
		if strings.HasPrefix(modelID, prefix) {
			return r.providers.Image
		}
	}
	for _, prefix := range r.rules.ChatPrefixes {
		if strings.HasPrefix(modelID, prefix) {
			return r.providers.Chat
		}
	}
	return r.providers.Generic
}
