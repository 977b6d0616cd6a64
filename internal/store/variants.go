package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/JacobsonMT/ndb/internal/variant"
)

// variantColumns selects a full record. Gene and effect annotations are
// folded into ';'-delimited strings in their source order.
const variantColumns = `
	v.id, v.raw_variant_id, v.event_id, v.subject_id, COALESCE(v.paper_id, 0),
	v.sample_id, v.chromosome, v.start, v.stop, v.ref, v.alt,
	COALESCE((SELECT group_concat(g.symbol, ';' ORDER BY g.position)
		FROM variant_genes g WHERE g.variant_id = v.id), ''),
	COALESCE((SELECT group_concat(e.category, ';' ORDER BY e.position)
		FROM variant_effects e WHERE e.variant_id = v.id), ''),
	v.funcs, v.aa_changes, v.cytoband, v.gene_detail`

// Variant returns one record by id, or ErrNotFound.
func (s *Store) Variant(ctx context.Context, id int64) (variant.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+variantColumns+` FROM variants v WHERE v.id = ?`, id)
	rec, err := scanVariant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return variant.Record{}, fmt.Errorf("variant %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return variant.Record{}, fmt.Errorf("read variant %d: %w", id, err)
	}
	return rec, nil
}

// VariantsByGene returns every record annotated with the gene symbol,
// matched case-insensitively, ordered by id ASC.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) VariantsByGene(ctx context.Context, symbol string) ([]variant.Record, error) {
	symbol = variant.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("variants by gene: symbol is required")
	}
	return s.queryVariants(ctx, "variants by gene", `
		SELECT `+variantColumns+`
		FROM variants v
		WHERE EXISTS (
			SELECT 1 FROM variant_genes g
			WHERE g.variant_id = v.id AND g.symbol = ? COLLATE NOCASE
		)
		ORDER BY v.id ASC
	`, symbol)
}

// VariantsByRegion returns every record overlapping the region, ordered by
// id ASC.
func (s *Store) VariantsByRegion(ctx context.Context, r variant.Region) ([]variant.Record, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("variants by region: %w", err)
	}
	return s.queryVariants(ctx, "variants by region", `
		SELECT `+variantColumns+`
		FROM variants v
		WHERE v.chromosome = ? AND v.start <= ? AND v.stop >= ?
		ORDER BY v.id ASC
	`, variant.NormalizeChromosome(r.Chromosome), r.Stop, r.Start)
}

// eventBatchSize bounds the placeholders of one VariantsByEvent query.
// SQLite rejects statements with more than SQLITE_MAX_VARIABLE_NUMBER
// parameters.
const eventBatchSize = 500

// VariantsByEvent returns every record of the given events, ordered by id
// ASC. Used to complete events that a gene or region search only partly
// matched. Large id lists are queried in batches.
func (s *Store) VariantsByEvent(ctx context.Context, eventIDs ...int64) ([]variant.Record, error) {
	records := []variant.Record{}
	for batch := range slices.Chunk(eventIDs, eventBatchSize) {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		recs, err := s.queryVariants(ctx, "variants by event", `
			SELECT `+variantColumns+`
			FROM variants v
			WHERE v.event_id IN (`+placeholders+`)
			ORDER BY v.id ASC
		`, args...)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	if len(eventIDs) > eventBatchSize {
		slices.SortFunc(records, func(a, b variant.Record) int {
			return cmp.Compare(a.ID, b.ID)
		})
	}
	return records, nil
}

func (s *Store) queryVariants(ctx context.Context, op, query string, args ...any) ([]variant.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	records := []variant.Record{}
	for rows.Next() {
		rec, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return records, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanVariant(sc scanner) (variant.Record, error) {
	var (
		rec                         variant.Record
		genes, effects, funcs, aaCh string
	)
	err := sc.Scan(
		&rec.ID,
		&rec.RawVariantID,
		&rec.EventID,
		&rec.SubjectID,
		&rec.PaperID,
		&rec.SampleID,
		&rec.Chromosome,
		&rec.Start,
		&rec.Stop,
		&rec.Ref,
		&rec.Alt,
		&genes,
		&effects,
		&funcs,
		&aaCh,
		&rec.Cytoband,
		&rec.GeneDetail,
	)
	if err != nil {
		return variant.Record{}, err
	}
	rec.Genes = variant.SplitList(genes)
	rec.Effects = variant.SplitList(effects)
	rec.Funcs = variant.SplitList(funcs)
	rec.AAChanges = variant.SplitList(aaCh)
	return rec, nil
}
