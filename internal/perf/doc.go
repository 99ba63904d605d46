// Package perf holds latency and throughput checks for the request path.
package perf
