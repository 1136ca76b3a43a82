// Package batch drives a download run over a manifest.
//
// Records are handled strictly in order. For each index i the driver parses
// the record, skips it when invalid, otherwise fetches its image. A fetched
// or failed record sets lastProcessedIndex to i; a skipped one leaves it
// alone. Failures are appended to the failure log, which is flushed right
// away. The checkpoint is flushed whenever i is a multiple of the flush
// interval and once more when the run ends.
//
// A resumed run starts at lastProcessedIndex, so the boundary record is
// processed twice.
package batch
