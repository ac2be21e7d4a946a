// Package metrics exposes Prometheus collectors for the gateway. Metrics
// implements ideation.Observer so it can be attached to every client.
package metrics
