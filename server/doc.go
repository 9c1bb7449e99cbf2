// Package server exposes the inference harness over HTTP with gin.
//
// Requests pass a net/http middleware chain (server/middleware) before
// reaching gin: recovery, request id, tracing, CORS, body size limit and
// request logging. With tls configured the server negotiates HTTP/2 over
// TLS and can require client certificates; otherwise h2c serves HTTP/2 in
// cleartext on the same port.
//
// # Endpoints
//
//   - GET  /v1/metadata: system-under-test metadata and engine description
//   - POST /v1/batches: run one batch of payloads or host file paths
//   - GET  /health, /ready, /info (server/endpoint)
package server
