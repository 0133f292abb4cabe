package domain

import "errors"

var (
	// ErrSourceUnavailable signals a missing optional source table.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMalformedRecord signals a row or cell that failed parsing.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrRetrievalUnavailable signals that the vector index or the embedding
	// capability is unreachable at query time. Distinct from zero results.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmptyCorpus signals an ingestion run against an empty corpus.
	ErrEmptyCorpus = errors.New("empty corpus")
)
