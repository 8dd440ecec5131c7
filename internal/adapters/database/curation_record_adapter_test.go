package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

func setupMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return postgres.NewClientFromDB(db), mock
}

func recordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "kind", "fields", "lifecycle_state", "verified_lock",
		"evidence_refs", "version", "created_at", "updated_at", "promoted_at",
	})
}

func TestCurationRecordAdapter_GetByID(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCurationRecordAdapter(client)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "kind", "fields"`)).
		WithArgs("r1").
		WillReturnRows(recordRows().AddRow(
			"r1", "manual_seed", `{"resolved_target_symbol":"ERBB2","proxy_smiles_flag":true}`, "confirmed", false,
			"{e1,e2}", int64(3), created, created, nil,
		))

	rec, err := adapter.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, entities.LifecycleConfirmed, rec.LifecycleState)
	assert.Equal(t, "ERBB2", rec.Fields.Get(entities.FieldTargetSymbol).String())
	assert.True(t, rec.Fields.Get(entities.FieldProxySmilesFlag).Truthy())
	assert.Equal(t, []string{"e1", "e2"}, rec.EvidenceRefs)
	assert.Equal(t, int64(3), rec.Version)
	assert.Nil(t, rec.PromotedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurationRecordAdapter_GetByIDNotFound(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCurationRecordAdapter(client)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "curation_records"`)).WillReturnRows(recordRows())

	_, err := adapter.GetByID(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurationRecordAdapter_UpdateBumpsVersion(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCurationRecordAdapter(client)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "curation_records" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &entities.CurationRecord{ID: "r1", Version: 4, Fields: entities.Fields{"axis": entities.StringValue("HER2")}}
	require.NoError(t, adapter.Update(context.Background(), rec))
	assert.Equal(t, int64(5), rec.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurationRecordAdapter_UpdateStaleVersion(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCurationRecordAdapter(client)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "curation_records" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "version" FROM "curation_records"`)).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(6)))

	rec := &entities.CurationRecord{ID: "r1", Version: 4}
	err := adapter.Update(context.Background(), rec)
	assert.True(t, apperrors.IsConflict(err), "got %v", err)
	assert.Equal(t, int64(4), rec.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurationRecordAdapter_UpdateMissingRow(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCurationRecordAdapter(client)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "curation_records" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "version" FROM "curation_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	err := adapter.Update(context.Background(), &entities.CurationRecord{ID: "gone", Version: 1})
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func TestCurationRecordAdapter_DriverErrorIsInternal(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCurationRecordAdapter(client)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "curation_records"`)).
		WillReturnError(errors.New("connection reset"))

	err := adapter.Create(context.Background(), &entities.CurationRecord{ID: "r1", Kind: "adc_seed"})
	assert.True(t, apperrors.IsSystemic(err))
	assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
}

func TestTxManager_CommitAndRollback(t *testing.T) {
	client, mock := setupMockClient(t)
	tm := NewTxManager(client)
	adapter := NewCurationRecordAdapter(client)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "curation_records" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tm.WithinTx(ctx, func(ctx context.Context) error {
		return adapter.Update(ctx, &entities.CurationRecord{ID: "r1", Version: 1})
	})
	require.NoError(t, err)

	boom := errors.New("provenance insert failed")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "curation_records" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err = tm.WithinTx(ctx, func(ctx context.Context) error {
		if err := adapter.Update(ctx, &entities.CurationRecord{ID: "r1", Version: 2}); err != nil {
			return err
		}
		return tm.WithinTx(ctx, func(ctx context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
