package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/riskcheck/riskcheck/internal/platform/phi"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore persists sessions in the sessions table. When an encryptor is
// configured, payloads are sealed with the session id as associated data.
type PGStore struct {
	db  queryable
	enc *phi.Encryptor
}

// NewPGStore creates a Postgres-backed store. enc may be nil.
func NewPGStore(db queryable, enc *phi.Encryptor) *PGStore {
	return &PGStore{db: db, enc: enc}
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess := &Session{ID: id}
	var data []byte
	var encrypted bool
	err := s.db.QueryRow(ctx,
		`SELECT payload, encrypted, created_at, updated_at, expires_at
		FROM sessions WHERE id = $1 AND expires_at > NOW()`, id,
	).Scan(&data, &encrypted, &sess.CreatedAt, &sess.UpdatedAt, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if encrypted {
		if s.enc == nil {
			return nil, fmt.Errorf("session %s is encrypted but no ENCRYPTION_KEY is configured", id)
		}
		if data, err = s.enc.Open(data, id[:]); err != nil {
			return nil, fmt.Errorf("decrypt session %s: %w", id, err)
		}
	}

	if err := decodePayload(sess, data); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *PGStore) Save(ctx context.Context, sess *Session) error {
	data, err := encodePayload(sess)
	if err != nil {
		return err
	}

	encrypted := false
	if s.enc != nil {
		if data, err = s.enc.Seal(data, sess.ID[:]); err != nil {
			return fmt.Errorf("encrypt session %s: %w", sess.ID, err)
		}
		encrypted = true
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO sessions (id, payload, encrypted, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			payload = EXCLUDED.payload,
			encrypted = EXCLUDED.encrypted,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at`,
		sess.ID, data, encrypted, sess.CreatedAt, sess.UpdatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *PGStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE expires_at > NOW()`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
