// Package universe provides the company directory backed by sqlite.
package universe

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// ErrCompanyNotFound is returned when a lookup matches no directory entry.
var ErrCompanyNotFound = errors.New("company not found")

var _ interfaces.CompanyDirectory = (*Store)(nil)

// Store is the company directory. Reads are served from an in-memory list
// reloaded from sqlite once it is older than the refresh interval.
type Store struct {
	db              *sql.DB
	logger          *common.Logger
	refreshInterval time.Duration

	mu          sync.RWMutex
	companies   []models.Company
	refreshedAt time.Time
}

// Open opens (creating if needed) the directory database at cfg.DBPath and
// seeds it from cfg.SeedFile when the table is empty.
// A DBPath of ":memory:" keeps the directory in memory.
func Open(ctx context.Context, logger *common.Logger, cfg *common.UniverseConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("universe db_path is required")
	}
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", cfg.DBPath, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: sqlite serializes writers and ":memory:" is per-connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{
		db:              db,
		logger:          logger,
		refreshInterval: cfg.GetRefreshInterval(),
	}

	if cfg.SeedFile != "" {
		n, err := s.SeedFromFile(ctx, cfg.SeedFile)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.SeedFile).Msg("Company seed not loaded")
		} else if n > 0 {
			logger.Info().Int("companies", n).Str("path", cfg.SeedFile).Msg("Seeded company directory")
		}
	}

	if err := s.Refresh(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Refresh reloads the cached company list from the database.
func (s *Store) Refresh(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name, isin, provider_id FROM universe ORDER BY name`)
	if err != nil {
		return fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.Name, &c.ISIN, &c.ProviderID); err != nil {
			return fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read companies: %w", err)
	}

	s.mu.Lock()
	s.companies = companies
	s.refreshedAt = time.Now()
	s.mu.Unlock()

	s.logger.Debug().Int("companies", len(companies)).Msg("Company directory refreshed")
	return nil
}

// snapshot returns the cached list, reloading it first when stale.
func (s *Store) snapshot(ctx context.Context) ([]models.Company, error) {
	s.mu.RLock()
	fresh := common.IsFresh(s.refreshedAt, s.refreshInterval)
	companies := s.companies
	s.mu.RUnlock()

	if fresh {
		return companies, nil
	}

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.companies, nil
}

// List returns every company ordered by name.
func (s *Store) List(ctx context.Context) ([]models.Company, error) {
	companies, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Company, len(companies))
	copy(out, companies)
	return out, nil
}

// Names returns the sorted company names.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	companies, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(companies))
	for i, c := range companies {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names, nil
}

// ByName looks a company up by exact name, then case-insensitively.
func (s *Store) ByName(ctx context.Context, name string) (*models.Company, error) {
	return s.find(ctx, "name", name, func(c models.Company) bool {
		return c.Name == name
	}, func(c models.Company) bool {
		return strings.EqualFold(c.Name, strings.TrimSpace(name))
	})
}

// ByISIN looks a company up by ISIN.
func (s *Store) ByISIN(ctx context.Context, isin string) (*models.Company, error) {
	isin = strings.ToUpper(strings.TrimSpace(isin))
	return s.find(ctx, "isin", isin, func(c models.Company) bool {
		return isin != "" && c.ISIN == isin
	})
}

// ByProviderID looks a company up by its provider id.
func (s *Store) ByProviderID(ctx context.Context, providerID string) (*models.Company, error) {
	providerID = strings.TrimSpace(providerID)
	return s.find(ctx, "provider_id", providerID, func(c models.Company) bool {
		return providerID != "" && c.ProviderID == providerID
	})
}

// find applies each matcher in turn and returns the first company matched.
func (s *Store) find(ctx context.Context, field, value string, matchers ...func(models.Company) bool) (*models.Company, error) {
	companies, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, match := range matchers {
		for _, c := range companies {
			if match(c) {
				found := c
				return &found, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s %q", ErrCompanyNotFound, field, value)
}

// Upsert inserts or replaces a company.
func (s *Store) Upsert(ctx context.Context, c models.Company) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("company name is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO universe (name, isin, provider_id) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET isin = excluded.isin, provider_id = excluded.provider_id`,
		c.Name, strings.ToUpper(c.ISIN), c.ProviderID)
	if err != nil {
		return fmt.Errorf("failed to upsert company %s: %w", c.Name, err)
	}
	s.invalidate()
	return nil
}

// SetProviderID records the provider id resolved for a company.
func (s *Store) SetProviderID(ctx context.Context, name, providerID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE universe SET provider_id = ? WHERE name = ?`, providerID, name)
	if err != nil {
		return fmt.Errorf("failed to set provider id for %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: name %q", ErrCompanyNotFound, name)
	}
	s.invalidate()
	return nil
}

// Stats summarises the directory.
func (s *Store) Stats(ctx context.Context) (*models.DirectoryStats, error) {
	companies, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.DirectoryStats{Companies: len(companies)}
	for _, c := range companies {
		if c.HasProviderID() {
			stats.Mapped++
		}
	}
	s.mu.RLock()
	stats.RefreshedAt = s.refreshedAt
	s.mu.RUnlock()
	return stats, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) invalidate() {
	s.mu.Lock()
	s.refreshedAt = time.Time{}
	s.mu.Unlock()
}

func (s *Store) count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM universe`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}
	return n, nil
}
