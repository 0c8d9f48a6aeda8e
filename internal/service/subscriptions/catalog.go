package subscriptions

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

// catalogFile задаёт формат файла каталога пакетов.
//
//	packages:
//	  - id: starter
//	    name: Starter
//	    event_credits: 5
//	    price_minor: 49900
//	    currency: INR
//	    duration_days: 30
type catalogFile struct {
	Packages []catalogEntry `yaml:"packages"`
}

type catalogEntry struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	EventCredits int32  `yaml:"event_credits"`
	PriceMinor   int64  `yaml:"price_minor"`
	Currency     string `yaml:"currency"`
	DurationDays int32  `yaml:"duration_days"`
	Active       *bool  `yaml:"active"`
}

// LoadCatalog разбирает YAML-каталог. Пакет без поля active считается активным.
func LoadCatalog(r io.Reader) ([]domain.Package, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode package catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Packages))
	pkgs := make([]domain.Package, 0, len(file.Packages))
	for i, entry := range file.Packages {
		pkg := domain.Package{
			ID:           strings.TrimSpace(entry.ID),
			Name:         strings.TrimSpace(entry.Name),
			EventCredits: entry.EventCredits,
			PriceMinor:   entry.PriceMinor,
			Currency:     strings.ToUpper(strings.TrimSpace(entry.Currency)),
			DurationDays: entry.DurationDays,
			Active:       entry.Active == nil || *entry.Active,
		}
		if pkg.ID == "" {
			return nil, fmt.Errorf("package #%d: id is required", i+1)
		}
		if _, dup := seen[pkg.ID]; dup {
			return nil, fmt.Errorf("package %q: duplicate id", pkg.ID)
		}
		seen[pkg.ID] = struct{}{}
		if err := domain.ValidationError(pkg.Validate()); err != nil {
			return nil, fmt.Errorf("package %q: %w", pkg.ID, err)
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}

// LoadCatalogFile читает каталог с диска.
func LoadCatalogFile(path string) ([]domain.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open package catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}
