package universe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/insight/internal/models"
)

// seedFile is the YAML layout of the company seed.
type seedFile struct {
	Companies []models.Company `yaml:"companies"`
}

// ParseSeed decodes a YAML company seed. Entries without a name are rejected.
func ParseSeed(data []byte) ([]models.Company, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse company seed: %w", err)
	}
	for i, c := range seed.Companies {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("company seed entry %d has no name", i)
		}
		seed.Companies[i].ISIN = strings.ToUpper(strings.TrimSpace(c.ISIN))
		seed.Companies[i].ProviderID = strings.TrimSpace(c.ProviderID)
	}
	return seed.Companies, nil
}

// SeedFromFile loads companies from a YAML file when the directory is empty.
// Returns the number of companies inserted.
func (s *Store) SeedFromFile(ctx context.Context, path string) (int, error) {
	n, err := s.count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read company seed %s: %w", path, err)
	}
	companies, err := ParseSeed(data)
	if err != nil {
		return 0, err
	}
	return s.Seed(ctx, companies)
}

// Seed inserts companies in a single transaction, skipping names already present.
func (s *Store) Seed(ctx context.Context, companies []models.Company) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO universe (name, isin, provider_id) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare seed insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range companies {
		res, err := stmt.ExecContext(ctx, c.Name, c.ISIN, c.ProviderID)
		if err != nil {
			return 0, fmt.Errorf("failed to seed company %s: %w", c.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}
	s.invalidate()
	return inserted, nil
}
