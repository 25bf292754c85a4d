package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/domain"
	"github.com/kailas-cloud/docguard/internal/usecase/fallback"
)

// Repo holds the reference access-request dataset, loaded once at startup
// and read-only afterwards. It implements access.ReferenceDataset.
type Repo struct {
	rows map[string]fallback.Record
}

// Load reads a CSV dataset keyed by the user_id column. Rows with a
// duplicate user_id keep the first occurrence.
func Load(path string, logger *zap.Logger) (*Repo, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("dataset %s has no header row", path)
	}

	header := records[0]
	idCol := -1
	for i, name := range header {
		if name == "user_id" {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("dataset %s has no user_id column", path)
	}

	rows := make(map[string]fallback.Record, len(records)-1)
	for _, rec := range records[1:] {
		if idCol >= len(rec) || rec[idCol] == "" {
			continue
		}
		userID := rec[idCol]
		if _, ok := rows[userID]; ok {
			continue
		}
		row := make(fallback.Record, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		rows[userID] = row
	}

	logger.Info("reference dataset loaded",
		zap.String("path", path),
		zap.Int("rows", len(rows)))

	return &Repo{rows: rows}, nil
}

// Lookup returns the dataset row for a user, or
// domain.ErrReferenceRecordNotFound.
func (r *Repo) Lookup(userID string) (fallback.Record, error) {
	row, ok := r.rows[userID]
	if !ok {
		return nil, domain.ErrReferenceRecordNotFound
	}
	return row, nil
}

// Len reports the number of loaded rows.
func (r *Repo) Len() int {
	return len(r.rows)
}
