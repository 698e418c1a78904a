// Package models defines data structures for Insight
package models

import "time"

// Company is a listed company known to the directory.
// ProviderID is the canonical identifier; ISIN is kept for lookup and display.
type Company struct {
	Name       string `json:"name" yaml:"name"`
	ISIN       string `json:"isin,omitempty" yaml:"isin,omitempty"`
	ProviderID string `json:"provider_id,omitempty" yaml:"provider_id,omitempty"`
}

// ID returns the identifier used against the document provider.
func (c Company) ID() string {
	return c.ProviderID
}

// HasProviderID reports whether the company has been mapped to a provider id.
func (c Company) HasProviderID() bool {
	return c.ProviderID != ""
}

// ProviderCompany is the provider's view of a company.
type ProviderCompany struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
	ISIN        string `json:"isin,omitempty"`
	Country     string `json:"country,omitempty"`
}

// DirectoryStats summarises the company directory for health reporting.
type DirectoryStats struct {
	Companies   int       `json:"companies"`
	Mapped      int       `json:"mapped"`
	RefreshedAt time.Time `json:"refreshed_at"`
}
