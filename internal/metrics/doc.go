// Package metrics records generation metrics.
//
// Components receive a Recorder and default to NoopRecorder, so metrics cost
// nothing unless configured. PrometheusRecorder collects into a registry that
// WriteTextfile exports in the node_exporter textfile format, which suits a
// CLI that exits after each run.
package metrics
