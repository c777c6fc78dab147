// Package metrics records Prometheus metrics about lint runs.
//
// tablint is a batch tool, so metrics are not scraped over HTTP. After each
// run the registry is written to a file for the node_exporter textfile
// collector:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordRun(metrics.Sample{Status: metrics.StatusSuccess, ...})
//	if err := collector.WriteTextfile(); err != nil {
//	    logger.Warn("metrics not written", "error", err)
//	}
package metrics
