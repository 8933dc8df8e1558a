package tableau

// Raw node shapes returned by the Tableau Metadata API. Fields mirror the
// GraphQL documents in queries.go; anything the mapper does not read is left
// out on purpose.

// UserRef is an owner/creator reference.
type UserRef struct {
	Username string `json:"username"`
}

// TagRef is a tag attached to a workbook or sheet. Entries can be null in
// the API response, hence the pointer slices wherever tags appear.
type TagRef struct {
	Name string `json:"name"`
}

// Workbook is one workbooksConnection node.
type Workbook struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	URI         string  `json:"uri"`
	ProjectName string  `json:"projectName"`
	Owner       UserRef `json:"owner"`

	Tags                []*TagRef    `json:"tags"`
	Sheets              []Sheet      `json:"sheets"`
	Dashboards          []Dashboard  `json:"dashboards"`
	EmbeddedDatasources []Datasource `json:"embeddedDatasources"`
}

// Sheet is a worksheet inside a workbook (emitted as a chart).
type Sheet struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`

	Tags                  []*TagRef       `json:"tags"`
	ContainedInDashboards []DashboardRef  `json:"containedInDashboards"`
	UpstreamDatasources   []DatasourceRef `json:"upstreamDatasources"`
	DatasourceFields      []Field         `json:"datasourceFields"`
}

// DashboardRef is the subset of dashboard data visible from a sheet.
type DashboardRef struct {
	Path string `json:"path"`
}

// Dashboard is a dashboard inside a workbook.
type Dashboard struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`

	Sheets []SheetRef `json:"sheets"`
}

// SheetRef identifies a sheet placed on a dashboard.
type SheetRef struct {
	ID string `json:"id"`
}

// DatasourceRef identifies a datasource from a referencing node.
type DatasourceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Datasource is an embedded or published datasource node.
type Datasource struct {
	TypeName    string  `json:"__typename"`
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ProjectName string  `json:"projectName"` // published datasources only
	Owner       UserRef `json:"owner"`       // published datasources only

	HasExtracts                      *bool  `json:"hasExtracts"`
	ExtractLastRefreshTime           string `json:"extractLastRefreshTime"`
	ExtractLastIncrementalUpdateTime string `json:"extractLastIncrementalUpdateTime"`
	ExtractLastUpdateTime            string `json:"extractLastUpdateTime"`

	Fields            []Field       `json:"fields"`
	UpstreamTables    []Table       `json:"upstreamTables"`
	UpstreamDatabases []DatabaseRef `json:"upstreamDatabases"`

	// Workbook is present when the datasource is reached through a
	// custom SQL column reference rather than a workbook crawl.
	Workbook *WorkbookRef `json:"workbook"`
}

// WorkbookRef is the subset of workbook data visible from a datasource.
type WorkbookRef struct {
	Name        string `json:"name"`
	ProjectName string `json:"projectName"`
}

// DatabaseRef identifies an upstream database.
type DatabaseRef struct {
	Name string `json:"name"`
}

// Table is an upstream physical table referenced by a datasource.
type Table struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Schema         string   `json:"schema"`
	ConnectionType string   `json:"connectionType"`
	Columns        []Column `json:"columns"`
}

// Column is one column of an upstream table or custom SQL table.
type Column struct {
	Name        string    `json:"name"`
	RemoteType  string    `json:"remoteType"`
	Description string    `json:"description"`
	Table       *TableRef `json:"table"`

	// ReferencedByFields appears on custom SQL columns and points back at
	// the datasource fields built on top of them.
	ReferencedByFields []FieldReference `json:"referencedByFields"`
}

// TableRef identifies the table a ColumnField column belongs to.
type TableRef struct {
	ID string `json:"id"`
}

// FieldReference links a custom SQL column to a referencing datasource.
type FieldReference struct {
	Datasource *Datasource `json:"datasource"`
}

// Field is a datasource or sheet field. The metadata API returns a union
// (ColumnField, CalculatedField, DatasourceField, ...); the union members'
// fields are flattened here and empty when not applicable.
type Field struct {
	TypeName    string `json:"__typename"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DataType    string `json:"dataType"`
	Role        string `json:"role"`
	Aggregation string `json:"aggregation"`
	Formula     string `json:"formula"` // CalculatedField only

	// Columns is set on ColumnField and carries the underlying table link.
	Columns []Column `json:"columns"`

	// RemoteField is set on DatasourceField and holds the field data of
	// the published datasource's field this one proxies.
	RemoteField *Field `json:"remoteField"`
}

// CustomSQLTable is one customSQLTablesConnection node.
type CustomSQLTable struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Query       string `json:"query"`

	Columns     []Column     `json:"columns"`
	Datasources []Datasource `json:"datasources"`
}
