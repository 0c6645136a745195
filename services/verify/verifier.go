package verify

import (
	"encoding/json"
	"fmt"
	"reflect"

	"dbaccountsync/models"
	"dbaccountsync/pkg/logger"
	"dbaccountsync/repository"
	"dbaccountsync/services/snapshot"
)

// FieldMismatch records one divergence between a legacy flat column and the
// normalized snapshot for a synced account row.
type FieldMismatch struct {
	AccountID     uint        `json:"id"`
	Username      string      `json:"username"`
	Engine        string      `json:"engine"`
	Field         string      `json:"field"`
	LegacyValue   interface{} `json:"legacy_value"`
	SnapshotValue interface{} `json:"snapshot_value"`
}

// Report summarizes one verification run over sampled synced accounts.
type Report struct {
	TotalSampled      int             `json:"total_sampled"`
	Consistent        int             `json:"consistent"`
	Inconsistent      int             `json:"inconsistent"`
	InconsistencyRate float64         `json:"inconsistency_rate"`
	Errors            []FieldMismatch `json:"errors"`
}

// Verifier rebuilds the snapshot view from the legacy flat columns of stored
// account rows and diffs it against the persisted snapshot document.
type Verifier struct {
	accounts repository.SyncedAccountRepository
}

func NewVerifier() *Verifier {
	return &Verifier{accounts: repository.NewSyncedAccountRepository()}
}

// Run samples up to sampleSize rows (0 means all rows) and verifies each.
func (v *Verifier) Run(sampleSize int) (*Report, error) {
	rows, err := v.accounts.Sample(nil, sampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to sample synced accounts: %w", err)
	}

	report := &Report{
		TotalSampled: len(rows),
		Errors:       []FieldMismatch{},
	}
	for i := range rows {
		mismatches := v.verifyRow(&rows[i])
		if len(mismatches) == 0 {
			report.Consistent++
			continue
		}
		report.Inconsistent++
		report.Errors = append(report.Errors, mismatches...)
	}
	if report.TotalSampled > 0 {
		report.InconsistencyRate = float64(report.Inconsistent) / float64(report.TotalSampled)
	}
	logger.Infof("verification finished: sampled=%d consistent=%d inconsistent=%d",
		report.TotalSampled, report.Consistent, report.Inconsistent)
	return report, nil
}

// verifyRow checks one stored row. A snapshot document that is missing,
// unparsable, or lacks the categories key is inconsistent by definition,
// regardless of what the legacy columns hold.
func (v *Verifier) verifyRow(row *models.SyncedAccount) []FieldMismatch {
	mismatch := func(field string, legacy, snap interface{}) FieldMismatch {
		return FieldMismatch{
			AccountID:     row.ID,
			Username:      row.Username,
			Engine:        row.Engine,
			Field:         field,
			LegacyValue:   legacy,
			SnapshotValue: snap,
		}
	}

	categories, err := storedCategories(row.Snapshot)
	if err != nil {
		logger.Warnf("account %d (%s): %v", row.ID, row.Username, err)
		return []FieldMismatch{mismatch("categories", row.LegacyCategoryColumns(), nil)}
	}

	legacyCols := row.LegacyCategoryColumns()
	var mismatches []FieldMismatch
	for _, category := range snapshot.EngineCategories(models.Engine(row.Engine)) {
		var legacyRaw interface{}
		if doc, ok := legacyCols[category]; ok {
			if err := json.Unmarshal([]byte(doc), &legacyRaw); err != nil {
				mismatches = append(mismatches, mismatch(category, doc, categories[category]))
				continue
			}
		}

		var rebuilt, stored interface{}
		if snapshot.IsKeyedCategory(category) {
			keyed, _ := snapshot.FlattenKeyed(legacyRaw)
			rebuilt = Canonicalize(keyed)
			stored = Canonicalize(storedKeyed(categories[category]))
		} else {
			flat, _ := snapshot.FlattenList(legacyRaw)
			rebuilt = Canonicalize(flat)
			stored = Canonicalize(storedFlat(categories[category]))
		}
		if !reflect.DeepEqual(rebuilt, stored) {
			mismatches = append(mismatches, mismatch(category, rebuilt, stored))
		}
	}
	return mismatches
}

// storedCategories parses the persisted snapshot document and extracts its
// categories mapping.
func storedCategories(doc string) (map[string]interface{}, error) {
	if doc == "" {
		return nil, fmt.Errorf("snapshot document is empty")
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot document: %w", err)
	}
	raw, ok := parsed["categories"]
	if !ok {
		return nil, fmt.Errorf("snapshot document has no categories key")
	}
	categories, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("snapshot categories key is not a mapping")
	}
	return categories, nil
}

// storedFlat coerces a stored flat category value to a list, treating a
// missing category as empty.
func storedFlat(v interface{}) []interface{} {
	if list, ok := v.([]interface{}); ok {
		return list
	}
	return []interface{}{}
}

// storedKeyed coerces a stored keyed category value to a mapping, treating a
// missing category as empty.
func storedKeyed(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}
