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
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

func stagingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "type", "name", "properties", "quality_grade",
		"source_connector", "source_external_id", "source_fetched_at",
		"status", "review_note", "reviewed_by", "created_at", "reviewed_at",
	})
}

func TestStagingAdapter_ResolveApproves(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewStagingAdapter(client)
	ts := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "staging_components" SET`)).
		WillReturnRows(stagingRows().AddRow(
			"s1", "payload", "MMAE", `{"smiles":"CC"}`, "gold",
			"chembl", "CHEMBL1", ts, "approved", nil, "alice", ts, ts,
		))

	c, err := adapter.Resolve(context.Background(), "s1", entities.StagingApproved, entities.Resolution{ReviewedBy: "alice"})
	require.NoError(t, err)
	assert.Equal(t, entities.StagingApproved, c.Status)
	assert.Equal(t, entities.ComponentPayload, c.Type)
	assert.Equal(t, "chembl", c.Source.Connector)
	assert.Equal(t, "CC", c.Properties.Get("smiles").String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStagingAdapter_ResolveTwiceReportsAlreadyResolved(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewStagingAdapter(client)
	ts := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "staging_components" SET`)).WillReturnRows(stagingRows())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "type", "name"`)).
		WillReturnRows(stagingRows().AddRow(
			"s1", "payload", "MMAE", `{}`, "gold",
			"chembl", "CHEMBL1", ts, "approved", nil, "alice", ts, ts,
		))

	_, err := adapter.Resolve(context.Background(), "s1", entities.StagingApproved, entities.Resolution{})
	assert.True(t, apperrors.IsAlreadyResolved(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
