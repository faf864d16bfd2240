// Package gateway contains the inference executors: the non-streaming and
// streaming entry points that validate a request, ensure the target model
// is activated, resolve a provider, and run the provider call under the
// configured timeout and retry discipline.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/debug"
	"github.com/modelgate/modelgate/pkg/observability"
	"github.com/modelgate/modelgate/pkg/provider"
)

// Activations is the registry surface the executors need. Satisfied by
// *registry.Registry.
type Activations interface {
	RecordFor(id string) *api.ActivationRecord
	ActivateModel(ctx context.Context, id string, overrides map[string]any) (*api.ActivationRecord, error)
	GetActiveModel() (api.ModelStatus, bool)
	Touch(ctx context.Context)
}

// Gateway executes inference requests against resolved providers.
type Gateway struct {
	cfg      Config
	registry Activations
	resolver *Resolver
	logger   *slog.Logger
}

// New creates a gateway. logger may be nil.
func New(cfg Config, reg Activations, resolver *Resolver, logger *slog.Logger) *Gateway {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{cfg: cfg, registry: reg, resolver: resolver, logger: logger}
}

// Infer runs one non-streaming inference request.
//
// The pipeline is strictly ordered: validation, auto-activation, provider
// resolution, then the provider call under the inference timeout with
// bounded retry. Validation failures return before any registry or network
// interaction; activation failures return before any network interaction.
func (g *Gateway) Infer(ctx context.Context, req *api.InferenceRequest) (*api.InferenceResult, error) {
	if verr := api.ValidateRequest(req); verr != nil {
		return nil, verr
	}

	modelID, err := g.selectModel(req)
	if err != nil {
		return nil, err
	}
	if err := g.ensureActivated(ctx, modelID); err != nil {
		return nil, err
	}

	prov := g.resolver.Resolve(modelID)
	preq := buildProviderRequest(modelID, req)
	debug.Log("gateway", "dispatching inference",
		"model", modelID, "provider", prov.Name(), "stream", false)

	tctx, cancel := context.WithTimeout(ctx, g.cfg.InferenceTimeout)
	defer cancel()

	start := time.Now()
	resp, err := g.callWithRetry(tctx, prov, modelID, preq)
	observability.InferenceLatency.WithLabelValues(prov.Name(), modelID).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.InferenceTotal.WithLabelValues(prov.Name(), modelID, "error").Inc()
		if isTimeout(tctx, err) {
			return nil, api.NewTimeoutError("inference timed out after " + g.cfg.InferenceTimeout.String())
		}
		return nil, err
	}
	observability.InferenceTotal.WithLabelValues(prov.Name(), modelID, "ok").Inc()

	g.registry.Touch(ctx)

	return &api.InferenceResult{
		ModelID:    modelID,
		Text:       resp.Text,
		Images:     resp.Images,
		CreatedAt:  time.Now().Unix(),
		Raw:        resp.Raw,
		Parameters: req.Echo(),
	}, nil
}

// selectModel picks the target model id: the request's explicit model, then
// the active model, then the configured default.
func (g *Gateway) selectModel(req *api.InferenceRequest) (string, error) {
	if req.Model != "" {
		return req.Model, nil
	}
	if active, ok := g.registry.GetActiveModel(); ok {
		return active.ID, nil
	}
	if g.cfg.DefaultModel != "" {
		return g.cfg.DefaultModel, nil
	}
	return "", api.NewActivationError("no model specified and no model is active")
}

// ensureActivated auto-activates the model when its record is missing or
// not in the activated state.
func (g *Gateway) ensureActivated(ctx context.Context, modelID string) error {
	rec := g.registry.RecordFor(modelID)
	if rec != nil && rec.Status == api.StatusActivated {
		return nil
	}
	if _, err := g.registry.ActivateModel(ctx, modelID, nil); err != nil {
		return err
	}
	g.logger.Info("auto-activated model", "model", modelID)
	return nil
}

// callWithRetry invokes the provider under the bounded retry policy.
// Transient network failures are retried with exponential backoff up to
// MaxRetries additional attempts; every other error kind is permanent.
func (g *Gateway) callWithRetry(ctx context.Context, prov provider.Provider, modelID string, preq *provider.Request) (*provider.Response, error) {
	op := func() (*provider.Response, error) {
		resp, err := prov.Infer(ctx, preq)
		if err != nil {
			if !api.AsError(err).Retryable() {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return resp, nil
	}

	notify := func(err error, delay time.Duration) {
		observability.InferenceRetriesTotal.WithLabelValues(prov.Name(), modelID).Inc()
		g.logger.Warn("retrying inference call",
			"provider", prov.Name(), "model", modelID, "delay", delay, "error", err)
	}

	return backoff.RetryNotifyWithData(op, g.newBackOff(ctx), notify)
}

// newBackOff builds the per-call retry policy: exponential backoff with
// jitter starting at RetryDelay, capped at MaxRetries attempts, stopping
// early when the timeout context fires.
func (g *Gateway) newBackOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.cfg.RetryDelay
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(g.cfg.MaxRetries)), ctx)
}

// isTimeout reports whether a failed call was terminated by the inference
// timeout rather than by the provider itself.
func isTimeout(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded)
}

// buildProviderRequest maps the validated request onto the provider
// contract. The credential override travels only on the dedicated field;
// adapters place it exclusively in their authentication header.
func buildProviderRequest(modelID string, req *api.InferenceRequest) *provider.Request {
	return &provider.Request{
		Model:       modelID,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Credential:  req.Credential,
	}
}
