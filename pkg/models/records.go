package models

// Record is one unit of harvested metadata handed to a sink. Every record
// has a deterministic identifier so downstream consumers can dedupe replays.
type Record interface {
	// RecordID returns the record's unique identifier.
	RecordID() string
	// RecordKind returns the record's envelope discriminator.
	RecordKind() string
}

// EntityKind classifies an entity snapshot.
type EntityKind string

const (
	EntityKindDataset   EntityKind = "dataset"
	EntityKindChart     EntityKind = "chart"
	EntityKindDashboard EntityKind = "dashboard"
	EntityKindContainer EntityKind = "container"
)

// LineageKind classifies a lineage edge.
type LineageKind string

// LineageTransformed marks upstreams whose data is reshaped on the way down.
const LineageTransformed LineageKind = "TRANSFORMED"

// EntitySnapshot is the full state of one entity: identity plus every aspect
// known at harvest time. Optional aspects are nil/empty when not produced;
// an absent aspect means "not harvested", never "default value".
type EntitySnapshot struct {
	URN  string     `json:"urn"`
	Kind EntityKind `json:"kind"`

	Properties    *EntityProperties `json:"properties,omitempty"`
	Schema        *SchemaMetadata   `json:"schema,omitempty"`
	BrowsePaths   []string          `json:"browsePaths,omitempty"`
	Ownership     *Ownership        `json:"ownership,omitempty"`
	GlobalTags    []string          `json:"globalTags,omitempty"`
	ChartInfo     *ChartInfo        `json:"chartInfo,omitempty"`
	DashboardInfo *DashboardInfo    `json:"dashboardInfo,omitempty"`
	ViewProps     *ViewProperties   `json:"viewProperties,omitempty"`
	SubTypes      []string          `json:"subTypes,omitempty"`
}

// EntityProperties carries the display name, description and free-form
// source properties of an entity. Description is always present in output,
// possibly empty, never null.
type EntityProperties struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	ExternalURL      string            `json:"externalUrl,omitempty"`
	CustomProperties map[string]string `json:"customProperties,omitempty"`
}

// SchemaMetadata describes the fields of a dataset-like entity.
type SchemaMetadata struct {
	SchemaName string        `json:"schemaName"`
	Platform   string        `json:"platform"`
	Version    int           `json:"version"`
	Fields     []SchemaField `json:"fields"`
}

// SchemaField is one column/field in a schema.
type SchemaField struct {
	FieldPath      string        `json:"fieldPath"`
	Type           SchemaTypeTag `json:"type"`
	NativeDataType string        `json:"nativeDataType"`
	Description    string        `json:"description"`
	Tags           []string      `json:"tags,omitempty"`
}

// SchemaTypeTag is the canonical type vocabulary for schema fields.
type SchemaTypeTag string

const (
	TypeTagBoolean SchemaTypeTag = "boolean"
	TypeTagNumber  SchemaTypeTag = "number"
	TypeTagString  SchemaTypeTag = "string"
	TypeTagDate    SchemaTypeTag = "date"
	TypeTagTime    SchemaTypeTag = "time"
	TypeTagArray   SchemaTypeTag = "array"
	// TypeTagNull marks native types with no canonical mapping.
	TypeTagNull SchemaTypeTag = "null"
)

// Ownership assigns owners to an entity.
type Ownership struct {
	Owners []Owner `json:"owners"`
}

// Owner is one owner entry.
type Owner struct {
	OwnerURN string `json:"owner"`
	Type     string `json:"type"`
}

// OwnerTypeDataOwner is the ownership role produced by this connector.
const OwnerTypeDataOwner = "DATAOWNER"

// AuditStamp records who touched an entity and when (epoch millis).
type AuditStamp struct {
	TimeMillis int64  `json:"time"`
	Actor      string `json:"actor"`
}

// AuditStamps pairs creation and last-modification stamps. The zero value
// means the source provided no usable audit information.
type AuditStamps struct {
	Created      AuditStamp `json:"created"`
	LastModified AuditStamp `json:"lastModified"`
}

// ChartInfo carries chart-specific display data.
type ChartInfo struct {
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	LastModified     AuditStamps       `json:"lastModified"`
	ExternalURL      string            `json:"externalUrl,omitempty"`
	Inputs           []string          `json:"inputs,omitempty"`
	CustomProperties map[string]string `json:"customProperties,omitempty"`
}

// DashboardInfo carries dashboard-specific display data.
type DashboardInfo struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Charts       []string    `json:"charts"`
	LastModified AuditStamps `json:"lastModified"`
	DashboardURL string      `json:"dashboardUrl,omitempty"`
}

// ViewProperties describes a view-like dataset (custom SQL).
type ViewProperties struct {
	Materialized bool   `json:"materialized"`
	Language     string `json:"viewLanguage"`
	Logic        string `json:"viewLogic"`
}

// LineageEdge connects an upstream entity to the downstream entity that
// reads from it.
type LineageEdge struct {
	UpstreamURN   string      `json:"upstream"`
	DownstreamURN string      `json:"downstream"`
	Kind          LineageKind `json:"kind"`
}

// ContainerMembership places an entity inside a container.
type ContainerMembership struct {
	ContainerURN string     `json:"container"`
	EntityURN    string     `json:"entity"`
	EntityKind   EntityKind `json:"entityKind"`
}

// RecordID returns the snapshot's URN.
func (s *EntitySnapshot) RecordID() string { return s.URN }

// RecordKind identifies entity snapshots in the sink envelope.
func (s *EntitySnapshot) RecordKind() string { return "entitySnapshot" }

// RecordID is deterministic in both edge endpoints.
func (e *LineageEdge) RecordID() string {
	return "lineage-" + e.DownstreamURN + "-" + e.UpstreamURN
}

// RecordKind identifies lineage edges in the sink envelope.
func (e *LineageEdge) RecordKind() string { return "lineageEdge" }

// RecordID is deterministic in the container/entity pair.
func (m *ContainerMembership) RecordID() string {
	return "container-" + m.ContainerURN + "-" + m.EntityURN
}

// RecordKind identifies container memberships in the sink envelope.
func (m *ContainerMembership) RecordKind() string { return "containerMembership" }

// Compile-time checks that every output shape satisfies Record.
var (
	_ Record = (*EntitySnapshot)(nil)
	_ Record = (*LineageEdge)(nil)
	_ Record = (*ContainerMembership)(nil)
)
