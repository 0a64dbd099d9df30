package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is the YAML shape accepted by `jobforge load`.
type Fixture struct {
	Companies []CompanyRecord `yaml:"companies"`
}

// LoadFixture parses a YAML fixture and ingests every company record.
func LoadFixture(ctx context.Context, dst Ingestor, data []byte) (int, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return 0, fmt.Errorf("parse fixture: %w", err)
	}
	for _, rec := range fx.Companies {
		if rec.CompanyRef == "" {
			return 0, fmt.Errorf("fixture company %q is missing company_ref", rec.Name)
		}
		if err := dst.PutCompany(ctx, rec); err != nil {
			return 0, fmt.Errorf("ingest %s: %w", rec.CompanyRef, err)
		}
	}
	return len(fx.Companies), nil
}

// LoadFixtureFile reads and ingests a fixture from disk.
func LoadFixtureFile(ctx context.Context, dst Ingestor, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read fixture: %w", err)
	}
	return LoadFixture(ctx, dst, data)
}
