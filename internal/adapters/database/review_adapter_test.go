package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

func reviewRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "record_id", "change_type", "field_name", "old_value", "new_value", "confidence",
		"source_job", "status", "review_comment", "reviewed_by", "created_at", "resolved_at",
	})
}

func TestReviewAdapter_ResolvePending(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewReviewAdapter(client)
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	resolved := created.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "review_change_items" SET`)).
		WillReturnRows(reviewRows().AddRow(
			"c1", "r1", "field_update", "linker_family", `null`, `"Val-Cit"`, 0.92,
			nil, "approved", "ok", "alice", created, resolved,
		))

	comment := "ok"
	item, err := adapter.Resolve(context.Background(), "c1", entities.ReviewApproved, entities.Resolution{
		Comment: &comment, ReviewedBy: "alice", ResolvedAt: resolved,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.ReviewApproved, item.Status)
	assert.Equal(t, "Val-Cit", item.NewValue.String())
	assert.True(t, item.OldValue.IsNull())
	require.NotNil(t, item.ReviewedBy)
	assert.Equal(t, "alice", *item.ReviewedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewAdapter_ResolveAlreadyResolved(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewReviewAdapter(client)
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "review_change_items" SET`)).
		WillReturnRows(reviewRows())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "record_id"`)).
		WithArgs("c1").
		WillReturnRows(reviewRows().AddRow(
			"c1", "r1", "field_update", "linker_family", `null`, `"Val-Cit"`, 0.92,
			nil, "rejected", nil, "bob", created, created,
		))

	_, err := adapter.Resolve(context.Background(), "c1", entities.ReviewApproved, entities.Resolution{})
	assert.True(t, apperrors.IsAlreadyResolved(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewAdapter_ResolveMissing(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewReviewAdapter(client)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "review_change_items" SET`)).WillReturnRows(reviewRows())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "record_id"`)).WillReturnRows(reviewRows())

	_, err := adapter.Resolve(context.Background(), "nope", entities.ReviewRejected, entities.Resolution{})
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func TestReviewAdapter_ListFiltersAndOrders(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewReviewAdapter(client)

	mock.ExpectQuery(`FROM "review_change_items" WHERE .*"status" = \$1.*"record_id" = \$2.*ORDER BY "created_at" DESC, "id" DESC LIMIT \$3`).
		WithArgs("pending", "r1", int64(10)).
		WillReturnRows(reviewRows())

	items, err := adapter.List(context.Background(), repositories.ReviewFilter{
		Status: entities.ReviewPending, RecordID: "r1", SortDesc: true, Limit: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}
