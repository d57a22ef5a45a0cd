// Package telemetry wires Prometheus metrics and OpenTelemetry tracing into
// the HTTP server.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TracingEnabled bool
	OTLPEndpoint   string  // host:port of the collector's gRPC receiver
	SampleRatio    float64 // 0.0 to 1.0
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "barberia-cobran"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.0.0"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		c.SampleRatio = 1.0
	}
}

var defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

// Provider owns the metrics registry and the tracer provider for one process.
type Provider struct {
	cfg        Config
	registry   *prometheus.Registry
	tracer     trace.TracerProvider
	propagator propagation.TextMapPropagator
	shutdown   func(context.Context) error

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// New builds the registry and, when tracing is enabled, an OTLP exporter
// with a parent-based ratio sampler. The tracer provider and propagator are
// installed globally so library instrumentation picks them up.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	cfg.applyDefaults()
	propagator := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(propagator)

	if !cfg.TracingEnabled {
		p := newProvider(cfg, otel.GetTracerProvider(), propagator)
		return p, nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(3*time.Second),
	)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	p := newProvider(cfg, tp, propagator)
	p.shutdown = tp.Shutdown
	return p, nil
}

func newProvider(cfg Config, tp trace.TracerProvider, propagator propagation.TextMapPropagator) *Provider {
	p := &Provider{
		cfg:        cfg,
		registry:   prometheus.NewRegistry(),
		tracer:     tp,
		propagator: propagator,
		shutdown:   func(context.Context) error { return nil },
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barberia",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "barberia",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   defaultDurationBuckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "barberia",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served",
		}),
	}
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.requests, p.duration, p.inflight,
	)
	return p
}

// Registry is where domain packages register their collectors.
func (p *Provider) Registry() *prometheus.Registry { return p.registry }

// Tracer returns a named tracer from the provider's tracer provider.
func (p *Provider) Tracer(name string) trace.Tracer { return p.tracer.Tracer(name) }

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}

// RegisterPoolStats exposes connection pool gauges read at scrape time.
func (p *Provider) RegisterPoolStats(stat func() *pgxpool.Stat) {
	gauge := func(name, help string, v func(*pgxpool.Stat) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "barberia",
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return v(stat()) })
	}
	p.registry.MustRegister(
		gauge("total_connections", "Open connections", func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		gauge("idle_connections", "Idle connections", func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
		gauge("acquired_connections", "Connections in use", func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
	)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// TracingMiddleware starts a server span per request, continuing any trace
// carried in the traceparent header.
func (p *Provider) TracingMiddleware() echo.MiddlewareFunc {
	return echo.WrapMiddleware(otelhttp.NewMiddleware(p.cfg.ServiceName,
		otelhttp.WithTracerProvider(p.tracer),
		otelhttp.WithPropagators(p.propagator),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics" && r.URL.Path != "/health"
		}),
	))
}

// MetricsMiddleware records request counts and latency labelled by the
// route pattern, never the raw path.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p.inflight.Inc()
			start := time.Now()

			err := next(c)

			p.inflight.Dec()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			method := c.Request().Method
			p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			p.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// statusOf predicts the code echo's error handler will write for err.
func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// Handler serves the registry in Prometheus text format.
func (p *Provider) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
}
