package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/bootstrap"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a small reference set of evidence, seeds and staging components",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.storage.Migrate(cmd.Context()); err != nil {
			return err
		}
		stats, err := seed(cmd.Context(), a.services)
		if err != nil {
			return err
		}
		log.Info().
			Int("evidence", stats.evidence).
			Int("records", stats.records).
			Int("components", stats.components).
			Msg("seed complete")
		return nil
	},
}

type seedStats struct {
	evidence   int
	records    int
	components int
}

func seed(ctx context.Context, svc *bootstrap.Services) (seedStats, error) {
	var stats seedStats

	// 1. Evidence
	evidence := []*entities.EvidenceItem{
		{Type: entities.EvidencePaper, Title: "DESTINY-Breast03: T-DXd vs T-DM1", Locator: "doi:10.1056/NEJMoa2115022", SourceQuality: entities.GradeA},
		{Type: entities.EvidenceLabel, Title: "Enhertu prescribing information", Locator: "https://www.accessdata.fda.gov/enhertu", SourceQuality: entities.GradeA},
		{Type: entities.EvidencePaper, Title: "EMILIA: T-DM1 in HER2+ metastatic breast cancer", Locator: "doi:10.1056/NEJMoa1209124", SourceQuality: entities.GradeA},
	}
	ids := make([]string, 0, len(evidence))
	for _, item := range evidence {
		id, err := svc.Ledger.RecordEvidence(ctx, item)
		if err != nil {
			return stats, fmt.Errorf("seed evidence %q: %w", item.Title, err)
		}
		ids = append(ids, id)
		stats.evidence++
	}

	// 2. Curation records
	records := []services.CreateRecordInput{
		{
			Kind: entities.RecordKindADCSeed,
			Fields: entities.Fields{
				"name":                          entities.StringValue("trastuzumab deruxtecan"),
				entities.FieldAxis:              entities.StringValue("payload"),
				entities.FieldTargetSymbol:      entities.StringValue("ERBB2"),
				entities.FieldPayloadFamily:     entities.StringValue("camptothecin"),
				entities.FieldLinkerType:        entities.StringValue("GGFG tetrapeptide"),
				entities.FieldConjugationMethod: entities.StringValue("cysteine"),
				entities.FieldOutcomeLabel:      entities.StringValue("success"),
				entities.FieldClinicalStatus:    entities.StringValue("approved"),
				entities.FieldNCTID:             entities.StringValue("NCT03529110"),
			},
			EvidenceRefs: ids[:2],
		},
		{
			Kind: entities.RecordKindManualSeed,
			Fields: entities.Fields{
				"name":                        entities.StringValue("trastuzumab emtansine"),
				entities.FieldTargetSymbol:    entities.StringValue("ERBB2"),
				entities.FieldPayloadSmiles:   entities.StringValue("CC1C2CC(C(C=CC=C(CC3=CC(=C(C(=C3)OC)Cl)N(C(=O)CC(C4(C1O4)C)OC(=O)C(C)N(C)C(=O)CCS)C)C)OC)(NC(=O)O2)O"),
				entities.FieldProxySmilesFlag: entities.BoolValue(false),
			},
			EvidenceRefs: ids[2:],
		},
	}
	for _, in := range records {
		if _, err := svc.Records.Create(ctx, in); err != nil {
			return stats, fmt.Errorf("seed record: %w", err)
		}
		stats.records++
	}

	// 3. Staging components
	components := []services.StagingInput{
		{Type: entities.ComponentPayload, Name: "MMAE", QualityGrade: entities.QualityGold,
			Properties: entities.Fields{"class": entities.StringValue("auristatin")},
			Source:     entities.ComponentSource{Connector: "chembl", ExternalID: "CHEMBL1200657"}},
		{Type: entities.ComponentLinker, Name: "Val-Cit-PABC", QualityGrade: entities.QualitySilver,
			Properties: entities.Fields{"cleavable": entities.BoolValue(true)},
			Source:     entities.ComponentSource{Connector: "pubchem", ExternalID: "CID-11488399"}},
		{Type: entities.ComponentTarget, Name: "TROP2", QualityGrade: entities.QualityGold,
			Properties: entities.Fields{"gene": entities.StringValue("TACSTD2")},
			Source:     entities.ComponentSource{Connector: "uniprot", ExternalID: "P09758"}},
	}
	for _, in := range components {
		if _, err := svc.Staging.Create(ctx, in); err != nil {
			return stats, fmt.Errorf("seed component %q: %w", in.Name, err)
		}
		stats.components++
	}
	return stats, nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
