// Package ingestion converts raw source records into canonical records and
// drives the batch run.
//
// A Processor handles one record at a time:
//   - validate the title and source type
//   - clean text, categories, rating and price, then rename aliased keys
//   - decode into core.Record
//   - enrich with processed text, geocoded location and language
//   - embed the processed text
//
// Only validation can reject a record. Enrichment and embedding failures are
// logged and leave their field empty.
//
// A Pipeline runs source tasks sequentially behind the rate limiter, processes
// the accumulated records on an ants worker pool and hands the survivors to
// the loader.
package ingestion
