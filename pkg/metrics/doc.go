// Package metrics exposes Prometheus collectors for sign-up submissions.
package metrics
