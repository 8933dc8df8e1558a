package tableau

import (
	"strconv"
	"strings"
	"time"

	"github.com/lodestar-data/tableau-harvester/pkg/config"
	"github.com/lodestar-data/tableau-harvester/pkg/models"
)

// replaceSlashChar substitutes literal "/" inside browse path components so
// names cannot masquerade as path segments.
const replaceSlashChar = "|"

// sanitizePathComponent makes a name safe for use as one browse path segment.
func sanitizePathComponent(name string) string {
	return strings.ReplaceAll(name, "/", replaceSlashChar)
}

// schemaKey keys the memoized schema-default resolution.
type schemaKey struct {
	schema   string
	database string
}

// auditKey keys the memoized last-modified derivation.
type auditKey struct {
	creator   string
	createdAt string
	updatedAt string
}

// upstreamTableInfo is the accumulated knowledge about one upstream table:
// its column descriptors and its display path. Consumed when placeholder
// records are produced for tables never directly visited.
type upstreamTableInfo struct {
	columns []Column
	path    string
}

// mapper translates raw metadata nodes into output records. It owns the
// cross-cutting harvest state: the two reference trackers, the upstream
// table accumulator and the memoization caches. One mapper belongs to one
// harvester for the duration of a single run; none of this is thread-safe.
type mapper struct {
	cfg *config.Config

	// datasourceIDs tracks datasources referenced by workbooks so the
	// published-datasource pass retrieves only those.
	datasourceIDs *ReferenceTracker
	// customSQLIDs tracks custom SQL tables referenced through
	// ColumnField columns for the custom-SQL pass.
	customSQLIDs *ReferenceTracker

	upstreamTables map[string]upstreamTableInfo
	upstreamOrder  []string

	// Memoization caches for pure per-entity derivations, keyed by input
	// values so entries are reusable across the whole run.
	schemaCache       map[schemaKey]string
	lastModifiedCache map[auditKey]models.AuditStamps
	ownershipCache    map[string]*models.Ownership
}

func newMapper(cfg *config.Config) *mapper {
	return &mapper{
		cfg:               cfg,
		datasourceIDs:     NewReferenceTracker(),
		customSQLIDs:      NewReferenceTracker(),
		upstreamTables:    make(map[string]upstreamTableInfo),
		schemaCache:       make(map[schemaKey]string),
		lastModifiedCache: make(map[auditKey]models.AuditStamps),
		ownershipCache:    make(map[string]*models.Ownership),
	}
}

// schemaFor resolves the effective schema for an upstream table: the
// provided schema, or the configured default for its database.
func (m *mapper) schemaFor(schemaProvided, database string) string {
	key := schemaKey{schema: schemaProvided, database: database}
	if cached, ok := m.schemaCache[key]; ok {
		return cached
	}

	schema := schemaProvided
	if schema == "" {
		if fallback, ok := m.cfg.DefaultSchemaMap[database]; ok {
			schema = fallback
		}
	}

	m.schemaCache[key] = schema
	return schema
}

// lastModified derives audit stamps from a creator and the source's
// created/updated timestamps. Without a creator there is no usable actor
// and the zero value is returned.
func (m *mapper) lastModified(creator, createdAt, updatedAt string) models.AuditStamps {
	key := auditKey{creator: creator, createdAt: createdAt, updatedAt: updatedAt}
	if cached, ok := m.lastModifiedCache[key]; ok {
		return cached
	}

	var stamps models.AuditStamps
	if creator != "" {
		actor := models.UserURN(creator)
		stamps = models.AuditStamps{
			Created:      models.AuditStamp{TimeMillis: parseTimestampMillis(createdAt), Actor: actor},
			LastModified: models.AuditStamp{TimeMillis: parseTimestampMillis(updatedAt), Actor: actor},
		}
	}

	m.lastModifiedCache[key] = stamps
	return stamps
}

// parseTimestampMillis converts an ISO-8601 timestamp to epoch millis,
// returning 0 when the value is missing or malformed.
func parseTimestampMillis(value string) int64 {
	if value == "" {
		return 0
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0
	}
	return ts.UnixMilli()
}

// ownership builds the ownership aspect for a creator. Nil — absence, not a
// default owner — when owner ingestion is disabled or the creator is empty.
func (m *mapper) ownership(user string) *models.Ownership {
	if !m.cfg.IngestOwner || user == "" {
		return nil
	}
	if cached, ok := m.ownershipCache[user]; ok {
		return cached
	}

	owned := &models.Ownership{
		Owners: []models.Owner{{
			OwnerURN: models.UserURN(user),
			Type:     models.OwnerTypeDataOwner,
		}},
	}
	m.ownershipCache[user] = owned
	return owned
}

// trackCustomSQLIDs inspects one datasource field for custom SQL usage.
// Tableau surfaces custom SQL datasources as tables behind ColumnField
// columns; any such table id is recorded for the custom-SQL pass.
func (m *mapper) trackCustomSQLIDs(field Field) {
	if field.TypeName != "ColumnField" {
		return
	}
	for _, column := range field.Columns {
		if column.Table != nil && column.Table.ID != "" {
			m.customSQLIDs.Record(column.Table.ID)
		}
	}
}

// datasourceSchema builds the schema aspect from datasource fields, tracking
// custom SQL references along the way. Returns nil when there are no fields.
func (m *mapper) datasourceSchema(name string, fields []Field) *models.SchemaMetadata {
	if len(fields) == 0 {
		return nil
	}

	schemaFields := make([]models.SchemaField, 0, len(fields))
	for _, field := range fields {
		// Datasource/custom-SQL relations show up as referenced column
		// fields; collect them while we are walking the schema anyway.
		m.trackCustomSQLIDs(field)

		nativeType := field.DataType
		if nativeType == "" {
			nativeType = unknownNativeType
		}

		sf := models.SchemaField{
			FieldPath:      field.Name,
			Type:           fieldTypeFor(nativeType),
			NativeDataType: nativeType,
			Description:    makeDescription(field.Description, field.Formula),
		}
		if m.cfg.IngestTags {
			sf.Tags = fieldTags(field)
		}
		schemaFields = append(schemaFields, sf)
	}

	return &models.SchemaMetadata{
		SchemaName: name,
		Platform:   models.PlatformURN(),
		Version:    0,
		Fields:     schemaFields,
	}
}

// columnsSchema builds the schema aspect from raw table columns (upstream
// table placeholders and custom SQL tables).
func (m *mapper) columnsSchema(name string, columns []Column) *models.SchemaMetadata {
	if len(columns) == 0 {
		return nil
	}

	schemaFields := make([]models.SchemaField, 0, len(columns))
	for _, column := range columns {
		nativeType := column.RemoteType
		if nativeType == "" {
			nativeType = unknownNativeType
		}
		schemaFields = append(schemaFields, models.SchemaField{
			FieldPath:      column.Name,
			Type:           fieldTypeFor(nativeType),
			NativeDataType: nativeType,
			Description:    column.Description,
		})
	}

	return &models.SchemaMetadata{
		SchemaName: name,
		Platform:   models.PlatformURN(),
		Version:    0,
		Fields:     schemaFields,
	}
}

// upstreamTableLineage derives lineage edges from a datasource (embedded,
// published or reached through custom SQL) to its upstream tables, and
// accumulates each table's columns and display path for placeholder
// emission.
//
// Tables without column metadata are skipped for embedded/published
// datasources — their schema arrives later through the custom-SQL pass —
// but never skipped when the owning context is custom SQL. Keep this
// asymmetry: it prevents schema-less duplicate table records.
func (m *mapper) upstreamTableLineage(downstreamURN string, ds Datasource, project string, isCustomSQL bool) []*models.LineageEdge {
	upstreamDB := ""
	if len(ds.UpstreamDatabases) > 0 {
		upstreamDB = ds.UpstreamDatabases[0].Name
	}

	var edges []*models.LineageEdge
	for _, table := range ds.UpstreamTables {
		if !isCustomSQL && len(table.Columns) == 0 {
			continue
		}

		schema := m.schemaFor(table.Schema, upstreamDB)
		tableURN := models.TableURN(m.cfg.Env, upstreamDB, table.ConnectionType, schema, table.Name)

		edges = append(edges, &models.LineageEdge{
			UpstreamURN:   tableURN,
			DownstreamURN: downstreamURN,
			Kind:          models.LineageTransformed,
		})

		path := sanitizePathComponent(project) + "/" +
			sanitizePathComponent(ds.Name) + "/" +
			sanitizePathComponent(table.Name)
		if _, ok := m.upstreamTables[tableURN]; !ok {
			m.upstreamOrder = append(m.upstreamOrder, tableURN)
		}
		m.upstreamTables[tableURN] = upstreamTableInfo{columns: table.Columns, path: path}
	}
	return edges
}

// mapDatasource translates one embedded or published datasource node.
// workbook is nil for published datasources; otherwise it supplies the
// project and owner context and triggers container membership.
func (m *mapper) mapDatasource(ds Datasource, workbook *Workbook) []models.Record {
	project := ds.ProjectName
	creator := ds.Owner.Username
	if workbook != nil {
		project = workbook.ProjectName
		creator = workbook.Owner.Username
	}
	project = sanitizePathComponent(project)

	datasourceName := ds.Name + "." + ds.ID
	datasourceURN := models.DatasetURN(ds.ID, m.cfg.Env)
	m.datasourceIDs.Record(ds.ID)

	snapshot := &models.EntitySnapshot{
		URN:  datasourceURN,
		Kind: models.EntityKindDataset,
		BrowsePaths: []string{
			"/" + strings.ToLower(m.cfg.Env) + "/" + models.Platform + "/" + project +
				"/" + sanitizePathComponent(ds.Name) + "/" + sanitizePathComponent(datasourceName),
		},
		Ownership: m.ownership(creator),
		Properties: &models.EntityProperties{
			Name:        ds.Name,
			Description: ds.Description,
			CustomProperties: map[string]string{
				"hasExtracts":                      formatOptionalBool(ds.HasExtracts),
				"extractLastRefreshTime":           ds.ExtractLastRefreshTime,
				"extractLastIncrementalUpdateTime": ds.ExtractLastIncrementalUpdateTime,
				"extractLastUpdateTime":            ds.ExtractLastUpdateTime,
				"type":                             ds.TypeName,
			},
		},
		Schema:   m.datasourceSchema(ds.Name, ds.Fields),
		SubTypes: []string{"Data Source"},
	}

	records := []models.Record{snapshot}
	for _, edge := range m.upstreamTableLineage(datasourceURN, ds, project, false) {
		records = append(records, edge)
	}

	if ds.TypeName == "EmbeddedDatasource" && workbook != nil {
		records = append(records, &models.ContainerMembership{
			ContainerURN: models.ContainerURN(workbook.ID),
			EntityURN:    datasourceURN,
			EntityKind:   models.EntityKindDataset,
		})
	}
	return records
}

// upstreamTableRecords produces placeholder snapshots for every upstream
// table accumulated so far, in first-discovery order. Tables visited again
// later simply refresh the accumulator and are re-emitted with the newer
// data.
func (m *mapper) upstreamTableRecords() []models.Record {
	records := make([]models.Record, 0, len(m.upstreamOrder))
	for _, tableURN := range m.upstreamOrder {
		info := m.upstreamTables[tableURN]
		records = append(records, &models.EntitySnapshot{
			URN:  tableURN,
			Kind: models.EntityKindDataset,
			BrowsePaths: []string{
				"/" + strings.ToLower(m.cfg.Env) + "/" + models.Platform + "/" + info.path,
			},
			Schema: m.columnsSchema(tableURN, info.columns),
		})
	}
	return records
}

// formatOptionalBool renders a nullable boolean as "true"/"false", or ""
// when the source omitted it.
func formatOptionalBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
