// Package alignment computes pairwise voting alignment between entities.
//
// Input is a batch of decoded rows, one per resolution × entity × vote. The
// pipeline normalizes each row into a VoteRecord, pivots the records into a
// resolution → entity → vote lookup, compares every ordered entity pair, and
// assembles the per-pair results into heatmap-ready matrices.
//
// Everything here is pure and synchronous. A batch is processed in one call
// and the result shares no state with any other batch, so independent
// batches may be analyzed concurrently without locking.
package alignment
