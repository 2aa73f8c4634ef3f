// Package selection aggregates per-series accuracy by cluster and produces
// the final forecasts for each cluster's chosen method.
package selection
