// Package ingestion turns an uploaded document into a queryable vector
// index.
//
// The pipeline extracts text (see TextExtractor), splits it into
// overlapping chunks, embeds every chunk concurrently on a worker pool,
// and publishes the full index atomically. A document only becomes
// answerable once Ingest returns nil; any failure leaves it unprocessed
// with no visible index.
package ingestion
