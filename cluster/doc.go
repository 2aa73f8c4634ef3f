// Package cluster extracts decomposition strength features from monthly
// series and groups the series by agglomerative hierarchical clustering.
package cluster
