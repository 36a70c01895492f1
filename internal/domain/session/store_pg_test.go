package session

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskcheck/riskcheck/internal/platform/phi"
	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

// fakeDB keeps the last saved row and replays it on QueryRow.
type fakeDB struct {
	execSQL  string
	execArgs []any
	rowsAff  int64
	row      *fakeRow
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	return pgconn.NewCommandTag("DELETE " + strconv.FormatInt(f.rowsAff, 10)), nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	if f.row == nil {
		return &fakeRow{err: pgx.ErrNoRows}
	}
	return f.row
}

type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *[]byte:
			*p = r.values[i].([]byte)
		case *bool:
			*p = r.values[i].(bool)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case *int64:
			*p = r.values[i].(int64)
		default:
			return errors.New("unexpected scan target")
		}
	}
	return nil
}

// replaySave turns the arguments of the last Save into a row for Get.
func (f *fakeDB) replaySave() {
	a := f.execArgs
	f.row = &fakeRow{values: []any{a[1], a[2], a[3], a[4], a[5]}}
}

func TestPGStore_EncryptedRoundTrip(t *testing.T) {
	ctx := context.Background()
	enc, err := phi.NewEncryptor(make([]byte, 32))
	require.NoError(t, err)
	db := &fakeDB{}
	store := NewPGStore(db, enc)

	s := New(time.Now(), time.Hour)
	s.SetResult(&scoring.Assessment{OverallRiskLevel: scoring.RiskModerate, PrimaryConcern: "Diabetes"}, nil)
	require.NoError(t, store.Save(ctx, s))

	assert.Contains(t, db.execSQL, "ON CONFLICT (id) DO UPDATE")
	assert.Equal(t, true, db.execArgs[2])
	assert.NotContains(t, string(db.execArgs[1].([]byte)), "Diabetes")

	db.replaySave()
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Diabetes", got.Assessment.PrimaryConcern)
}

func TestPGStore_PlainPayload(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{}
	store := NewPGStore(db, nil)

	s := New(time.Now(), time.Hour)
	s.SetResult(&scoring.Assessment{OverallRiskLevel: scoring.RiskLow}, &scoring.Location{Latitude: 3, Longitude: 4})
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, false, db.execArgs[2])

	db.replaySave()
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Location.Longitude)
}

func TestPGStore_EncryptedWithoutKey(t *testing.T) {
	ctx := context.Background()
	enc, err := phi.NewEncryptor(make([]byte, 32))
	require.NoError(t, err)
	db := &fakeDB{}
	s := New(time.Now(), time.Hour)
	require.NoError(t, NewPGStore(db, enc).Save(ctx, s))
	db.replaySave()

	_, err = NewPGStore(db, nil).Get(ctx, s.ID)
	assert.ErrorContains(t, err, "ENCRYPTION_KEY")
}

func TestPGStore_NotFound(t *testing.T) {
	_, err := NewPGStore(&fakeDB{}, nil).Get(context.Background(), New(time.Now(), time.Hour).ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPGStore_DeleteExpired(t *testing.T) {
	db := &fakeDB{rowsAff: 3}
	n, err := NewPGStore(db, nil).DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Contains(t, db.execSQL, "expires_at <= $1")
}

func TestPGStore_Count(t *testing.T) {
	db := &fakeDB{row: &fakeRow{values: []any{int64(5)}}}
	n, err := NewPGStore(db, nil).Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}
