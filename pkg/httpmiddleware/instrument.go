package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Instrument returns a middleware that wraps the handler with OpenTelemetry
// HTTP tracing and metrics, using the providers carried by the telemetry
// bundle. Spans are named after the request method and path.
func Instrument(serviceName string, m *app.Telemetry) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}
