/*
Package monitoring provides Prometheus metrics for the service.

# Overview

Metrics live on a private registry created by NewMetrics, exposed through
Handler. *Metrics implements terminal.Recorder, so session workers report
bytes streamed, log flushes by trigger, extracted usage records and dropped
persistence errors directly.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	mgr := terminal.NewManager(store, store, terminal.WithMetrics(metrics))

HTTP metrics are labelled with the matched route template rather than the
raw path, so per-session URLs do not create a series each.
*/
package monitoring
