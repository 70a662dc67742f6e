// Package prometheus exposes authcore engine metrics as a prometheus.Collector.
//
// Counters are named authcore_*_total; the login latency histogram is
// authcore_login_latency_seconds. Nothing is registered globally: callers register the
// [Collector] on their own registry or mount [Handler].
package prometheus
