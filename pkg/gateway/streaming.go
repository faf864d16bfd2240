package gateway

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/debug"
	"github.com/modelgate/modelgate/pkg/observability"
	"github.com/modelgate/modelgate/pkg/provider"
)

// InferStreaming runs one streaming inference request and returns a handle
// owning the provider's raw byte stream.
//
// The validation, auto-activation, and resolution steps match Infer. The
// capability check happens before any network interaction: providers
// without a streaming operation fail with a streaming-unsupported error
// immediately, with no retry and no timeout race. Connection establishment
// runs under the inference timeout and retry policy; once the handle is
// returned, bytes flow unbounded and closing the handle cancels the
// outbound call.
func (g *Gateway) InferStreaming(ctx context.Context, req *api.InferenceRequest) (*api.StreamHandle, error) {
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
	if !prov.Capabilities().Streaming {
		return nil, api.NewStreamingUnsupportedError(
			"provider " + prov.Name() + " has no streaming operation")
	}

	preq := buildProviderRequest(modelID, req)
	debug.Log("streaming", "establishing stream",
		"model", modelID, "provider", prov.Name())

	// The stream body outlives this call, so the timeout cannot live on the
	// context. Establishment races a timer instead; the cancel func rides
	// on the returned handle and fires on Close.
	sctx, cancel := context.WithCancel(ctx)

	type outcome struct {
		conn *provider.StreamConn
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		conn, err := g.connectWithRetry(sctx, prov, modelID, preq)
		done <- outcome{conn: conn, err: err}
	}()

	timer := time.NewTimer(g.cfg.InferenceTimeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		cancel()
		observability.InferenceTotal.WithLabelValues(prov.Name(), modelID, "error").Inc()
		return nil, api.NewTimeoutError(
			"stream establishment timed out after " + g.cfg.InferenceTimeout.String())

	case out := <-done:
		if out.err != nil {
			cancel()
			observability.InferenceTotal.WithLabelValues(prov.Name(), modelID, "error").Inc()
			return nil, out.err
		}
		observability.InferenceTotal.WithLabelValues(prov.Name(), modelID, "ok").Inc()
		g.registry.Touch(ctx)
		return api.NewStreamHandle(modelID, out.conn.ContentType, out.conn.Body, cancel), nil
	}
}

// connectWithRetry establishes the provider stream under the bounded retry
// policy. Only the initial connection is retried, never bytes already
// flowing.
func (g *Gateway) connectWithRetry(ctx context.Context, prov provider.Provider, modelID string, preq *provider.Request) (*provider.StreamConn, error) {
	op := func() (*provider.StreamConn, error) {
		conn, err := prov.Stream(ctx, preq)
		if err != nil {
			if !api.AsError(err).Retryable() {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return conn, nil
	}

	notify := func(err error, delay time.Duration) {
		observability.InferenceRetriesTotal.WithLabelValues(prov.Name(), modelID).Inc()
		g.logger.Warn("retrying stream establishment",
			"provider", prov.Name(), "model", modelID, "delay", delay, "error", err)
	}

	return backoff.RetryNotifyWithData(op, g.newBackOff(ctx), notify)
}
