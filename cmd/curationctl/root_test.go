package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/adapters/memory"
	"github.com/adcatlas/curation-backend/internal/bootstrap"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/pkg/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"migrate", "seed", "gates", "promote", "staging", "review"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "curationctl", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("actor"))
}

func TestReviewAutoApprove_Flags(t *testing.T) {
	flag := reviewAutoApproveCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
	assert.NotNil(t, reviewAutoApproveCmd.Flags().Lookup("record"))
}

func TestGatesCommand_RequiresRecordID(t *testing.T) {
	assert.Error(t, gatesCmd.Args(gatesCmd, nil))
	assert.NoError(t, gatesCmd.Args(gatesCmd, []string{"rec-1"}))
	assert.Error(t, stagingBulkApproveCmd.Args(stagingBulkApproveCmd, nil))
}

func TestReportBatch_PrintsPartialResult(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	result := &entities.BatchResult{ApprovedCount: 1, Approved: []string{"s1"}}
	require.NoError(t, reportBatch(cmd, result, nil))

	var decoded entities.BatchResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, []string{"s1"}, decoded.Approved)
}

func TestSeed_PopulatesMemoryStorage(t *testing.T) {
	st := bootstrap.NewMemoryStorage(memory.NewStore())
	svc, err := bootstrap.NewServices(config.CurationConfig{
		EvidenceMin:       2,
		ManualEvidenceMin: 1,
		MinEvidenceGrade:  "B",
		BulkConcurrency:   1,
	}, st, bootstrap.NewCache(nil, time.Minute), bootstrap.NewEventBus(nil), nil)
	require.NoError(t, err)

	stats, err := seed(context.Background(), svc)
	require.NoError(t, err)
	assert.Equal(t, seedStats{evidence: 3, records: 2, components: 3}, stats)

	// the reference seeds are promotable as shipped
	records, err := svc.Records.List(context.Background(), repositories.RecordFilter{})
	require.NoError(t, err)
	for _, rec := range records {
		res, err := svc.Gates.Check(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.True(t, res.Passed, "record %s (%s) failed gates: %v", rec.ID, rec.Kind, res.FailedChecks())
	}
}
