// Package server runs the horoscope-desk HTTP listener.
//
// It mounts the API routes next to two unauthenticated probes:
//
//	GET /health        always 200 "OK"
//	GET /health/ready  200 once the database answers a ping, else 503
//
// When metrics are enabled the Prometheus registry is exposed at the
// configured path and every request is counted by route pattern.
//
// Run blocks until its context is canceled, then drains the listener within
// server.shutdown_timeout and closes the database.
package server
