// Package server holds the process plumbing shared by the embedding and vector service binaries:
// observability providers, the middleware chain, and the HTTP server lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/knowledgebase/vectorhub/internal/api/middleware"
	"github.com/knowledgebase/vectorhub/internal/config"
	"github.com/knowledgebase/vectorhub/internal/observability"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 90 * time.Second
	idleTimeout  = 60 * time.Second

	// ShutdownTimeout bounds graceful shutdown after SIGINT/SIGTERM.
	ShutdownTimeout = 30 * time.Second
)

// Runtime owns the observability providers of one service process.
type Runtime struct {
	cfg            *config.Config
	serviceName    string
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metricsHandler http.Handler

	// Metrics is nil when METRICS_ENABLED is false.
	Metrics *observability.Metrics
}

// NewRuntime installs the process logger and, when configured, the meter and tracer providers.
func NewRuntime(ctx context.Context, cfg *config.Config, serviceName string, logger *slog.Logger) (*Runtime, error) {
	slog.SetDefault(logger)

	rt := &Runtime{cfg: cfg, serviceName: serviceName}

	if cfg.MetricsEnabled {
		mp, handler, err := observability.NewMeterProvider(serviceName)
		if err != nil {
			return nil, fmt.Errorf("create meter provider: %w", err)
		}

		metrics, err := observability.NewMetrics(mp.Meter(serviceName))
		if err != nil {
			if err2 := observability.ShutdownMeterProvider(ctx, mp); err2 != nil {
				slog.Error("shutdown meter provider after metrics error", "error", err2)
			}

			return nil, fmt.Errorf("create metrics: %w", err)
		}

		otel.SetMeterProvider(mp)

		rt.meterProvider = mp
		rt.metricsHandler = handler
		rt.Metrics = metrics
	} else {
		slog.Warn("metrics not enabled (METRICS_ENABLED=false)")
	}

	tp, err := observability.NewTracerProvider(ctx, cfg.OtelTracesExporter, serviceName)
	if err != nil {
		if err2 := observability.ShutdownMeterProvider(ctx, rt.meterProvider); err2 != nil {
			slog.Error("shutdown meter provider after tracer provider error", "error", err2)
		}

		return nil, fmt.Errorf("create tracer provider: %w", err)
	}

	if tp != nil {
		otel.SetTracerProvider(tp)

		rt.tracerProvider = tp
	} else {
		slog.Debug("tracing not enabled (OTEL_TRACES_EXPORTER empty or unsupported)")
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return rt, nil
}

// NewHTTPServer mounts GET /metrics (when enabled) on mux and wraps it in the middleware chain:
// RequestID -> otelhttp -> MaxBody -> Metrics -> Logging -> mux.
func (rt *Runtime) NewHTTPServer(mux *http.ServeMux) *http.Server {
	if rt.metricsHandler != nil {
		mux.Handle("GET /metrics", rt.metricsHandler)
	}

	var (
		httpMetrics observability.HTTPMetrics
		apiMetrics  middleware.RequestBodyTooLargeRecorder
	)

	if rt.Metrics != nil {
		httpMetrics = rt.Metrics.HTTP
		apiMetrics = rt.Metrics.API
	}

	var handler http.Handler = mux
	handler = middleware.Logging(slog.Default())(handler)
	handler = middleware.Metrics(httpMetrics)(handler)
	handler = middleware.MaxBody(rt.cfg.MaxRequestBodyBytes, apiMetrics)(handler)

	otelOpts := []otelhttp.Option{
		// Skip spans for health checks and scrapes.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}
	if rt.meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(rt.meterProvider))
	}

	if rt.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(rt.tracerProvider))
	}

	handler = otelhttp.NewHandler(handler, rt.serviceName, otelOpts...)
	handler = middleware.RequestID(handler)

	return &http.Server{
		Addr:         ":" + rt.cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Serve runs srv until ctx is cancelled (nil error) or the listener fails.
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown flushes the tracer and meter providers. Logs secondary errors, returns the first.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	var first error

	if err := observability.ShutdownTracerProvider(ctx, rt.tracerProvider); err != nil {
		first = err
	}

	if err := observability.ShutdownMeterProvider(ctx, rt.meterProvider); err != nil {
		if first == nil {
			first = err
		} else {
			slog.Error("shutdown meter provider", "error", err)
		}
	}

	return first
}
