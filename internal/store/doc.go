// Package store provides the SQLite-backed variant database.
//
// Tables:
//   - papers: publications that report variants
//   - genes: known gene symbols (case-insensitive)
//   - variants: one row per observed variant, keyed by id, grouped by event_id
//   - variant_genes, variant_effects: ordered gene and effect annotations
//
// # Deterministic reads
//
// Every query that returns variants orders by id ASC. The grouping engine
// keeps first-seen order, so a stable input order gives stable events.
//
// # Aggregates
//
// Store implements stats.Source. The aggregate queries scan whole tables and
// are meant to sit behind a statscache.Cache, not to be called per request.
//
// # Database Configuration
//
//   - WAL mode: reads proceed during an import
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: variants must reference known papers and genes
package store
