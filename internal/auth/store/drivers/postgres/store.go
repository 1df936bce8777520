// Package postgres is the PostgreSQL store driver, using pgx through
// database/sql and goose for migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/internal/auth/store/dbx"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

// NewStore opens dsn with the pgx driver.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return NewStoreFromDB(db), nil
}

// NewStoreFromDB wraps an existing handle.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users             { return &usersRepo{db: s.db} }
func (s *Store) OTPs() store.OTPs               { return &otpsRepo{db: s.db} }
func (s *Store) JobOrders() store.JobOrders     { return &jobOrdersRepo{db: s.db} }
func (s *Store) SigningKeys() store.SigningKeys { return &signingKeysRepo{db: s.db} }

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Commit() error                  { return t.tx.Commit() }
func (t *txStore) Rollback() error                { return t.tx.Rollback() }
func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }
func (t *txStore) ApplyMigrations() error         { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users             { return &usersRepo{db: t.tx} }
func (t *txStore) OTPs() store.OTPs               { return &otpsRepo{db: t.tx} }
func (t *txStore) JobOrders() store.JobOrders     { return &jobOrdersRepo{db: t.tx} }
func (t *txStore) SigningKeys() store.SigningKeys { return &signingKeysRepo{db: t.tx} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrAlreadyExists
	}
	return err
}

func requireOne(res sql.Result, err error, miss error) error {
	n, err := dbx.RowsAffected(res, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return miss
	}
	return nil
}
