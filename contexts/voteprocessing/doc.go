// Package voteprocessing implements the end-to-end vote-processing
// pipeline: ingestion, validation, and aggregation for law (referendum) and
// election ballots.
//
// The bounded context owns ballot authentication against a precomputed
// credential set, at-most-once claim bookkeeping, the durable audit log, and
// tally accumulation. It keeps business rules in application/domain layers
// and isolates infrastructure concerns (Postgres, Redis, RabbitMQ, HTTP)
// behind ports and adapters.
package voteprocessing
