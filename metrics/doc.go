// Package metrics defines the Prometheus collectors recorded during a publish
// run and a small HTTP server exposing them with liveness and readiness checks.
package metrics
