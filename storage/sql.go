package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const kvTable = "kv_entries"

var _ Store = (*SQLStore)(nil)

// Dialect captures what differs between the SQL backends: the database/sql
// driver name, bind placeholders and the upsert clause.
type Dialect struct {
	Name        string
	DriverName  string
	Placeholder squirrel.PlaceholderFormat
	Upsert      string
}

var (
	Postgres = Dialect{
		Name:        "postgres",
		DriverName:  "postgres",
		Placeholder: squirrel.Dollar,
		Upsert:      "ON CONFLICT (entry_key) DO UPDATE SET entry_value = EXCLUDED.entry_value, updated_at = EXCLUDED.updated_at",
	}
	PGX = Dialect{
		Name:        "pgx",
		DriverName:  "pgx",
		Placeholder: squirrel.Dollar,
		Upsert:      "ON CONFLICT (entry_key) DO UPDATE SET entry_value = EXCLUDED.entry_value, updated_at = EXCLUDED.updated_at",
	}
	MySQL = Dialect{
		Name:        "mysql",
		DriverName:  "mysql",
		Placeholder: squirrel.Question,
		Upsert:      "ON DUPLICATE KEY UPDATE entry_value = VALUES(entry_value), updated_at = VALUES(updated_at)",
	}
	SQLite = Dialect{
		Name:        "sqlite",
		DriverName:  "sqlite",
		Placeholder: squirrel.Question,
		Upsert:      "ON CONFLICT (entry_key) DO UPDATE SET entry_value = excluded.entry_value, updated_at = excluded.updated_at",
	}
)

func DialectFor(name string) (Dialect, error) {
	switch name {
	case Postgres.Name:
		return Postgres, nil
	case PGX.Name:
		return PGX, nil
	case MySQL.Name:
		return MySQL, nil
	case SQLite.Name:
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unknown sql dialect %q", name)
}

// SQLStore keeps every key in one row of the kv_entries table.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
	qb      squirrel.StatementBuilderType
}

func NewSQLStore(db *sqlx.DB, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
	}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := s.qb.Select("entry_value").From(kvTable).Where(squirrel.Eq{"entry_key": key}).ToSql()
	if err != nil {
		return "", false, err
	}

	var value string
	if err := s.db.GetContext(ctx, &value, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Apply(ctx context.Context, mutations ...Mutation) (err error) {
	if len(mutations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start a transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				logrus.Errorf("failed to rollback tx: %s", rollBackErr)
			}
		}
	}()

	now := time.Now().UTC()
	for _, m := range mutations {
		if err = s.apply(ctx, tx, m, now); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) apply(ctx context.Context, tx *sqlx.Tx, m Mutation, now time.Time) error {
	var (
		query string
		args  []interface{}
		err   error
	)
	if m.Delete {
		query, args, err = s.qb.Delete(kvTable).Where(squirrel.Eq{"entry_key": m.Key}).ToSql()
	} else {
		query, args, err = s.qb.Insert(kvTable).
			Columns("entry_key", "entry_value", "updated_at").
			Values(m.Key, m.Value, now).
			Suffix(s.dialect.Upsert).
			ToSql()
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write %s: %w", m.Key, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
