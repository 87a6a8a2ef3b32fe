package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// FAQRepository manages the species-tagged FAQ store backing the medical
// agent's auxiliary context
type FAQRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewFAQRepository creates a new FAQRepository
func NewFAQRepository(db *pgxpool.Pool, logger *zap.Logger) *FAQRepository {
	return &FAQRepository{
		db:     db,
		logger: logger,
	}
}

// Lookup returns FAQ entries for a species whose keyword column overlaps
// the given symptom keywords, most keyword hits first. An empty keyword
// list returns no entries rather than the whole table.
func (r *FAQRepository) Lookup(ctx context.Context, species model.Species, keywords []string) ([]model.FAQEntry, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	patterns := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		patterns = append(patterns, "%"+kw+"%")
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, species, keywords, question, answer
		FROM faq_entries
		WHERE species = $1 AND keywords ILIKE ANY($2)
		ORDER BY (
			SELECT count(*) FROM unnest($2::text[]) AS p WHERE keywords ILIKE p
		) DESC
		LIMIT 5
	`

	rows, err := r.db.Query(ctx, query, species, patterns)
	if err != nil {
		r.logger.Error("failed to look up FAQ entries", zap.Error(err), zap.String("species", string(species)))
		return nil, fmt.Errorf("failed to look up FAQ entries: %w", err)
	}
	defer rows.Close()

	var entries []model.FAQEntry
	for rows.Next() {
		var entry model.FAQEntry
		err := rows.Scan(
			&entry.ID,
			&entry.Species,
			&entry.Keywords,
			&entry.Question,
			&entry.Answer,
		)
		if err != nil {
			r.logger.Error("failed to scan FAQ entry", zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating FAQ entries", zap.Error(err))
		return nil, fmt.Errorf("error iterating FAQ entries: %w", err)
	}

	return entries, nil
}

// Create inserts a new FAQ entry
func (r *FAQRepository) Create(ctx context.Context, entry *model.FAQEntry) error {
	query := `
		INSERT INTO faq_entries (id, species, keywords, question, answer)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.Species,
		entry.Keywords,
		entry.Question,
		entry.Answer,
	)

	if err != nil {
		r.logger.Error("failed to create FAQ entry", zap.Error(err), zap.String("faq_id", entry.ID))
		return fmt.Errorf("failed to create FAQ entry: %w", err)
	}

	return nil
}
