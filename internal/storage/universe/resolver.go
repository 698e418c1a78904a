package universe

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
)

// ErrUnresolved is returned when a company has neither a provider id nor an
// ISIN the provider recognises.
var ErrUnresolved = errors.New("company has no provider id")

var _ interfaces.CompanyResolver = (*Resolver)(nil)

// Resolver maps directory entries to the provider's canonical company id.
// ISIN-only entries are resolved once and the mapping persisted.
type Resolver struct {
	directory interfaces.CompanyDirectory
	provider  interfaces.ProviderClient
	logger    *common.Logger
}

// NewResolver creates a resolver over a directory and provider.
func NewResolver(directory interfaces.CompanyDirectory, provider interfaces.ProviderClient, logger *common.Logger) *Resolver {
	return &Resolver{directory: directory, provider: provider, logger: logger}
}

// Resolve returns the named company with ProviderID set.
func (r *Resolver) Resolve(ctx context.Context, name string) (*models.Company, error) {
	company, err := r.directory.ByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if company.HasProviderID() {
		return company, nil
	}
	if company.ISIN == "" || r.provider == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, company.Name)
	}

	pc, err := r.provider.GetCompanyByISIN(ctx, company.ISIN)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnresolved, company.Name, err)
	}

	company.ProviderID = strconv.Itoa(pc.ID)
	if err := r.directory.SetProviderID(ctx, company.Name, company.ProviderID); err != nil {
		r.logger.Warn().Err(err).Str("company", company.Name).Msg("Failed to persist provider id")
	}

	r.logger.Info().
		Str("company", company.Name).
		Str("isin", company.ISIN).
		Str("provider_id", company.ProviderID).
		Msg("Resolved company provider id")

	return company, nil
}
