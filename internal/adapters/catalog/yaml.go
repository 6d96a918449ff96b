package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jobrunner/meridian/internal/domain"
)

// yamlCatalog is the document layout of a YAML catalog:
//
//	title: Local grids
//	version: "2"
//	keywords: [local]
//	definitions:
//	  - srid: 900913
//	    name: My system
//	    wkt: PROJCS[...]
type yamlCatalog struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Version     string           `yaml:"version"`
	Keywords    []string         `yaml:"keywords"`
	Definitions []yamlDefinition `yaml:"definitions"`
}

type yamlDefinition struct {
	SRID        int    `yaml:"srid"`
	Name        string `yaml:"name"`
	Authority   string `yaml:"authority"`
	Code        int    `yaml:"code"`
	Description string `yaml:"description"`
	WKT         string `yaml:"wkt"`
}

func readYAML(path string, cat *domain.Catalog) ([]record, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from the configured catalog directory
	if err != nil {
		return nil, &domain.StorageError{Operation: "read", Key: path, Err: err}
	}

	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml catalog: %w", err)
	}

	cat.Metadata = domain.CatalogMetadata{
		Title:       doc.Title,
		Description: doc.Description,
		Version:     doc.Version,
		Keywords:    doc.Keywords,
	}
	if doc.Title != "" {
		cat.Name = doc.Title
	}

	records := make([]record, 0, len(doc.Definitions))
	for i, d := range doc.Definitions {
		if d.SRID <= 0 {
			return nil, fmt.Errorf("definition %d: %w: srid must be positive", i, domain.ErrInvalidSRID)
		}
		records = append(records, record{
			SRID:        d.SRID,
			Name:        d.Name,
			Authority:   d.Authority,
			Code:        d.Code,
			WKT:         d.WKT,
			Description: d.Description,
		})
	}
	return records, nil
}
