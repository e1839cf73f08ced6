// Package memory provides the in-memory key-value store for jetkv.
//
// Features:
//
//   - Single Map: each key maps to one Entry carrying its own optional expiry,
//     so value and deadline can never drift apart
//   - Passive Expiry: deadlines are checked on access; no background sweeper
//   - Counters: hit, miss and eviction totals for the metrics collector
//
// Thread Safety:
//
// Every operation holds one store-wide mutex for the duration of a single
// map operation, so a concurrent Set and Get on the same key never observe
// a partially written entry.
package memory
