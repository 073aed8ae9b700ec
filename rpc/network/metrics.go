package network

import "github.com/VictoriaMetrics/metrics"

// Counters for the dispatch engine. Exposed through the default
// VictoriaMetrics registry; embedding processes decide whether and where to
// publish it.
var (
	metricRequestsQueued     = metrics.NewCounter(`dblob_network_requests_queued_total`)
	metricCheckoutTimeouts   = metrics.NewCounter(`dblob_network_checkout_timeouts_total`)
	metricNetworkErrors      = metrics.NewCounter(`dblob_network_errors_total`)
	metricResponsesReceived  = metrics.NewCounter(`dblob_network_responses_received_total`)
	metricLateResponses      = metrics.NewCounter(`dblob_network_late_responses_discarded_total`)
	metricConnectionsCreated = metrics.NewCounter(`dblob_network_connections_created_total`)
	metricConnectionsDropped = metrics.NewCounter(`dblob_network_connections_dropped_total`)
)
