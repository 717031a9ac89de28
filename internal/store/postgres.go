package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	clipstream_errors "clipstream/pkg/errors"
)

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// PostgresRecordStore keeps document records in a single JSONB table, one row
// per record, partitioned logically by collection name.
type PostgresRecordStore struct {
	pool *pgxpool.Pool
}

func NewPostgresRecordStore(ctx context.Context, cfg PostgresConfig) (*PostgresRecordStore, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresRecordStore{pool: pool}, nil
}

func NewPostgresRecordStoreFromPool(pool *pgxpool.Pool) *PostgresRecordStore {
	return &PostgresRecordStore{pool: pool}
}

func (s *PostgresRecordStore) CreateRecord(ctx context.Context, collection string, fields Fields) (uuid.UUID, error) {
	if collection == "" {
		return uuid.Nil, clipstream_errors.ErrInvalidInput
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO records (id, collection, fields, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())`,
		id, collection, body)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// PatchRecord shallow-merges fields into the record body. Keys present in the
// patch overwrite existing ones; others are untouched.
func (s *PostgresRecordStore) PatchRecord(ctx context.Context, collection string, id uuid.UUID, fields Fields) error {
	if collection == "" || id == uuid.Nil {
		return clipstream_errors.ErrInvalidInput
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE records SET fields = fields || $3::jsonb, updated_at = now()
		 WHERE id = $1 AND collection = $2`,
		id, collection, body)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return clipstream_errors.ErrNotFound
	}
	return nil
}

func (s *PostgresRecordStore) Close() {
	s.pool.Close()
}
