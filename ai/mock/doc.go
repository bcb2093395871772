// Package mock provides test doubles for the ai service interfaces.
//
// The mock embedder produces deterministic vectors derived from the input
// text, so similarity-based tests are reproducible without a live
// embedding service.
package mock
