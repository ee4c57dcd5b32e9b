package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"signalscore/internal/application/dto"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLScoreStore implements outbound.ScoreStore on the company_scores table.
//
// The full score document is stored as JSONB; company_name, score and category are
// duplicated into columns for listing and indexing. Lookups go through company_key, the
// lower-cased company name, so they are case-insensitive like the in-memory store.
type PostgreSQLScoreStore struct {
	pool *pgxpool.Pool
	tx   *TransactionManager
}

// NewPostgreSQLScoreStore creates a new PostgreSQL score store.
func NewPostgreSQLScoreStore(pool *pgxpool.Pool) *PostgreSQLScoreStore {
	return &PostgreSQLScoreStore{
		pool: pool,
		tx:   NewTransactionManager(pool),
	}
}

// FindByCompanyName finds the score of a company.
func (s *PostgreSQLScoreStore) FindByCompanyName(ctx context.Context, companyName string) (*dto.ScoreResponse, error) {
	key := companyKey(companyName)
	if key == "" {
		return nil, ErrInvalidArgument
	}

	query := `
		SELECT id, document
		FROM company_scores
		WHERE company_key = $1`

	var id int64
	var document []byte
	qi := GetQueryInterface(ctx, s.pool)
	if err := qi.QueryRow(ctx, query, key).Scan(&id, &document); err != nil {
		return nil, WrapError(err, "find score")
	}

	return decodeScoreDocument(id, document)
}

// FindAll returns every score ordered by company name.
func (s *PostgreSQLScoreStore) FindAll(ctx context.Context) ([]dto.ScoreResponse, error) {
	query := `
		SELECT id, document
		FROM company_scores
		ORDER BY company_key`

	qi := GetQueryInterface(ctx, s.pool)
	rows, err := qi.Query(ctx, query)
	if err != nil {
		return nil, WrapError(err, "list scores")
	}
	defer rows.Close()

	scores := []dto.ScoreResponse{}
	for rows.Next() {
		var id int64
		var document []byte
		if err := rows.Scan(&id, &document); err != nil {
			return nil, WrapError(err, "scan score")
		}
		score, err := decodeScoreDocument(id, document)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *score)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "list scores")
	}

	return scores, nil
}

// Save upserts a score and sets its CompanyID from the stored row.
func (s *PostgreSQLScoreStore) Save(ctx context.Context, score *dto.ScoreResponse) error {
	if score == nil || companyKey(score.CompanyName) == "" {
		return ErrInvalidArgument
	}

	document, err := encodeScoreDocument(score)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO company_scores (
			company_key, company_name, careers_url, score, category, document, scored_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (company_key) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			careers_url  = EXCLUDED.careers_url,
			score        = EXCLUDED.score,
			category     = EXCLUDED.category,
			document     = EXCLUDED.document,
			scored_at    = EXCLUDED.scored_at,
			updated_at   = now()
		RETURNING id`

	var id int64
	qi := GetQueryInterface(ctx, s.pool)
	err = qi.QueryRow(ctx, query,
		companyKey(score.CompanyName),
		score.CompanyName,
		score.CareersURL,
		score.Score,
		score.Category,
		document,
		score.ScoredAt,
	).Scan(&id)
	if err != nil {
		return WrapError(err, "save score")
	}

	score.CompanyID = &id
	return nil
}

// SaveAll saves scores in a single transaction.
func (s *PostgreSQLScoreStore) SaveAll(ctx context.Context, scores []*dto.ScoreResponse) error {
	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, score := range scores {
			if err := s.Save(txCtx, score); err != nil {
				return err
			}
		}
		return nil
	})
}

// Ping checks database connectivity.
func (s *PostgreSQLScoreStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

// encodeScoreDocument marshals the score without its row id, which lives in the id column.
func encodeScoreDocument(score *dto.ScoreResponse) ([]byte, error) {
	stored := *score
	stored.CompanyID = nil
	document, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode score document: %w", err)
	}
	return document, nil
}

func decodeScoreDocument(id int64, document []byte) (*dto.ScoreResponse, error) {
	var score dto.ScoreResponse
	if err := json.Unmarshal(document, &score); err != nil {
		return nil, fmt.Errorf("failed to decode score document %d: %w", id, err)
	}
	score.CompanyID = &id
	return &score, nil
}
