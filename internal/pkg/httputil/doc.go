// Package httputil contains small helpers shared by all HTTP handlers:
// JSON response writers, the standard error envelope, and request body
// decoding.
package httputil
