// Package aggregate groups cleaned order lines into monthly counts per
// sub-category and monthly store totals.
//
// Rankings are taken over the analysis window: callers narrow the counts
// with SubcategoryCounts.Window before TopN.
package aggregate
