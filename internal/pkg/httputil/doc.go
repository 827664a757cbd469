// Package httputil provides shared JSON request/response helpers.
//
// Handlers use these instead of raw http.ResponseWriter calls so that
// every endpoint emits the same JSON envelope and error shape.
package httputil
