package tableau

import (
	"strings"

	"github.com/lodestar-data/tableau-harvester/pkg/models"
)

// mapCustomSQL translates one custom SQL table node. Lineage is resolved in
// both directions: the datasources built on the query read from it
// (custom SQL -> datasource), and the query itself reads from physical
// tables (table -> custom SQL).
func (m *mapper) mapCustomSQL(csql CustomSQLTable) []models.Record {
	csqlURN := models.DatasetURN(csql.ID, m.cfg.Env)

	var records []models.Record
	for _, ds := range csql.Datasources {
		if ds.ID == "" {
			continue
		}
		records = append(records, &models.LineageEdge{
			UpstreamURN:   csqlURN,
			DownstreamURN: models.DatasetURN(ds.ID, m.cfg.Env),
			Kind:          models.LineageTransformed,
		})
	}

	records = append(records, m.customSQLUpstreamLineage(csqlURN, csql.Columns)...)

	records = append(records, &models.EntitySnapshot{
		URN:  csqlURN,
		Kind: models.EntityKindDataset,
		Properties: &models.EntityProperties{
			Name:        csql.Name,
			Description: csql.Description,
		},
		Schema: m.columnsSchema(csql.Name, csql.Columns),
		BrowsePaths: []string{
			"/" + strings.ToLower(m.cfg.Env) + "/" + models.Platform +
				"/Custom SQL/" + sanitizePathComponent(csql.Name) + "/" + csql.ID,
		},
		ViewProps: &models.ViewProperties{
			Materialized: false,
			Language:     "SQL",
			Logic:        cleanQuery(csql.Query),
		},
		SubTypes: []string{"View", "Custom SQL"},
	})
	return records
}

// customSQLUpstreamLineage walks the columns' referencing fields back to the
// datasources that use them, then reuses each datasource's upstream tables
// as the custom SQL query's own upstreams. Each datasource contributes once
// no matter how many of its fields reference the query.
func (m *mapper) customSQLUpstreamLineage(csqlURN string, columns []Column) []models.Record {
	var records []models.Record
	seen := make(map[string]bool)
	for _, column := range columns {
		for _, reference := range column.ReferencedByFields {
			ds := reference.Datasource
			if ds == nil || seen[ds.ID] {
				continue
			}
			seen[ds.ID] = true

			project := ""
			if ds.Workbook != nil {
				project = ds.Workbook.ProjectName
			}
			for _, edge := range m.upstreamTableLineage(csqlURN, *ds, project, true) {
				records = append(records, edge)
			}
		}
	}
	return records
}
