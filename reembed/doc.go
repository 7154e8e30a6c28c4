// Package reembed fills in or refreshes the embeddings of stored records.
//
// Records persisted while the embedding service was unavailable carry no
// vector. A Reembedder walks the store, selects those records (or every
// record, or records whose vector has the wrong dimension after a model
// change), embeds their processed text in batches with retry and writes the
// normalized vectors back through the repository.
package reembed
