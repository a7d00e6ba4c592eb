package sequence

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestNextSequenceUpsertsPerBloodGroup(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO alert_sequence (blood_group, last_sequence)`)).
		WithArgs("O-").
		WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO alert_sequence (blood_group, last_sequence)`)).
		WithArgs("O-").
		WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO alert_sequence (blood_group, last_sequence)`)).
		WithArgs("AB+").
		WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(1)))

	for i, want := range []struct {
		group string
		seq   int64
	}{
		{"O-", 1},
		{"O-", 2},
		{"AB+", 1},
	} {
		got, err := repo.NextSequence(ctx, want.group)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != want.seq {
			t.Fatalf("call %d: sequence = %d, want %d", i, got, want.seq)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestNextSequenceStoreError(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO alert_sequence (blood_group, last_sequence)`)).
		WithArgs("B+").
		WillReturnError(errors.New("connection reset"))

	if _, err := repo.NextSequence(ctx, "B+"); err == nil {
		t.Fatal("expected error from store, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
