// Package middleware provides the HTTP middleware used by the threatgraph API.
//
// Every middleware has the shape func(http.Handler) http.Handler and can be
// chained:
//
//	handler := middleware.PanicRecovery(logger)(mux)
//	handler = middleware.Metrics(registry)(handler)
//	handler = middleware.Logging(logger)(handler)
//	handler = middleware.RequestID()(handler)
//
// The response wrappers keep http.Flusher working so server-sent event
// streams pass through unbuffered.
package middleware
