package tableau

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-data/tableau-harvester/pkg/config"
	"github.com/lodestar-data/tableau-harvester/pkg/models"
)

func testConfig() *config.Config {
	return &config.Config{
		ConnectURI: "https://tableau.example.com",
		Site:       "acme",
		PageSize:   10,
		Env:        "PROD",
	}
}

func snapshots(records []models.Record) []*models.EntitySnapshot {
	var out []*models.EntitySnapshot
	for _, r := range records {
		if s, ok := r.(*models.EntitySnapshot); ok {
			out = append(out, s)
		}
	}
	return out
}

func lineageEdges(records []models.Record) []*models.LineageEdge {
	var out []*models.LineageEdge
	for _, r := range records {
		if e, ok := r.(*models.LineageEdge); ok {
			out = append(out, e)
		}
	}
	return out
}

func TestOwnershipGating(t *testing.T) {
	tests := []struct {
		name        string
		ingestOwner bool
		creator     string
		wantAbsent  bool
	}{
		{name: "disabled flag suppresses ownership", ingestOwner: false, creator: "sasha", wantAbsent: true},
		{name: "enabled flag with creator emits ownership", ingestOwner: true, creator: "sasha", wantAbsent: false},
		{name: "enabled flag with empty creator emits nothing", ingestOwner: true, creator: "", wantAbsent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.IngestOwner = tt.ingestOwner
			m := newMapper(cfg)

			owned := m.ownership(tt.creator)
			if tt.wantAbsent {
				assert.Nil(t, owned)
				return
			}
			require.NotNil(t, owned)
			require.Len(t, owned.Owners, 1)
			assert.Equal(t, models.UserURN(tt.creator), owned.Owners[0].OwnerURN)
			assert.Equal(t, models.OwnerTypeDataOwner, owned.Owners[0].Type)
		})
	}
}

func TestBrowsePathsNeverContainSlashFromNames(t *testing.T) {
	cfg := testConfig()
	m := newMapper(cfg)

	wb := Workbook{
		ID:          "wb-1",
		Name:        "Sales / EU",
		ProjectName: "Finance/Ops",
		Owner:       UserRef{Username: "sasha"},
	}
	sheet := Sheet{ID: "sheet-1", Name: "Rev/Share"}
	dashboard := Dashboard{ID: "dash-1", Name: "Over/View", Path: "over/view"}
	ds := Datasource{
		TypeName: "EmbeddedDatasource",
		ID:       "ds-1",
		Name:     "Orders/Raw",
	}

	var paths []string
	for _, records := range [][]models.Record{
		m.mapSheet(wb, sheet),
		m.mapDashboard(wb, dashboard),
		m.mapDatasource(ds, &wb),
	} {
		for _, s := range snapshots(records) {
			paths = append(paths, s.BrowsePaths...)
		}
	}

	require.NotEmpty(t, paths)
	for _, path := range paths {
		segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
		for _, segment := range segments {
			assert.NotContains(t, segment, "Sales / EU")
		}
		assert.NotContains(t, path, "Finance/Ops")
		assert.NotContains(t, path, "Rev/Share")
		assert.Contains(t, path, "|")
	}
}

func TestEmbeddedDatasourceZeroColumnTableSkipped(t *testing.T) {
	m := newMapper(testConfig())

	ds := Datasource{
		TypeName: "EmbeddedDatasource",
		ID:       "ds-1",
		Name:     "orders",
		UpstreamDatabases: []DatabaseRef{{Name: "warehouse"}},
		UpstreamTables: []Table{
			{ID: "t-1", Name: "orders_raw", Schema: "public", ConnectionType: "postgres"},
		},
	}
	wb := Workbook{ID: "wb-1", Name: "Sales", ProjectName: "Finance"}

	records := m.mapDatasource(ds, &wb)

	assert.Empty(t, lineageEdges(records))
	assert.Empty(t, m.upstreamTables)
}

func TestCustomSQLContextDoesNotSkipZeroColumnTables(t *testing.T) {
	m := newMapper(testConfig())

	ds := Datasource{
		ID:   "ds-1",
		Name: "orders",
		UpstreamDatabases: []DatabaseRef{{Name: "warehouse"}},
		UpstreamTables: []Table{
			{ID: "t-1", Name: "orders_raw", Schema: "public", ConnectionType: "postgres"},
		},
	}

	edges := m.upstreamTableLineage("urn:csql", ds, "Finance", true)

	require.Len(t, edges, 1)
	assert.Equal(t, "urn:csql", edges[0].DownstreamURN)
	assert.Equal(t,
		models.TableURN("PROD", "warehouse", "postgres", "public", "orders_raw"),
		edges[0].UpstreamURN)
	assert.Len(t, m.upstreamTables, 1)
}

func TestSchemaForUsesDefaultSchemaMap(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultSchemaMap = map[string]string{"warehouse": "analytics"}
	m := newMapper(cfg)

	assert.Equal(t, "public", m.schemaFor("public", "warehouse"))
	assert.Equal(t, "analytics", m.schemaFor("", "warehouse"))
	assert.Equal(t, "", m.schemaFor("", "other_db"))
}

func TestLastModifiedParsesTimestamps(t *testing.T) {
	m := newMapper(testConfig())

	stamps := m.lastModified("sasha", "2023-04-01T10:00:00Z", "2023-04-02T11:30:00Z")

	assert.Equal(t, models.UserURN("sasha"), stamps.Created.Actor)
	assert.Equal(t, int64(1680343200000), stamps.Created.TimeMillis)
	assert.Equal(t, int64(1680435000000), stamps.LastModified.TimeMillis)
}

func TestLastModifiedWithoutCreatorIsZero(t *testing.T) {
	m := newMapper(testConfig())
	assert.Equal(t, models.AuditStamps{}, m.lastModified("", "2023-04-01T10:00:00Z", "2023-04-02T11:30:00Z"))
}

func TestDatasourceSchemaTracksCustomSQLRefs(t *testing.T) {
	m := newMapper(testConfig())

	fields := []Field{
		{
			TypeName: "ColumnField",
			Name:     "amount",
			DataType: "INTEGER",
			Columns:  []Column{{Table: &TableRef{ID: "csql-1"}}},
		},
		{
			TypeName: "CalculatedField",
			Name:     "amount_eur",
			DataType: "REAL",
			Formula:  "[amount] * [rate]",
		},
	}

	schema := m.datasourceSchema("orders", fields)

	require.NotNil(t, schema)
	require.Len(t, schema.Fields, 2)
	assert.Equal(t, models.TypeTagNumber, schema.Fields[0].Type)
	assert.Equal(t, "formula: [amount] * [rate]", schema.Fields[1].Description)
	assert.Equal(t, []string{"csql-1"}, m.customSQLIDs.Snapshot())
}

func TestDatasourceSchemaUnknownTypeFallsBack(t *testing.T) {
	m := newMapper(testConfig())

	schema := m.datasourceSchema("orders", []Field{{Name: "geo", DataType: "SPATIAL"}})

	require.NotNil(t, schema)
	assert.Equal(t, models.TypeTagNull, schema.Fields[0].Type)
	assert.Equal(t, "SPATIAL", schema.Fields[0].NativeDataType)
}

func TestMapDatasourceCustomProperties(t *testing.T) {
	m := newMapper(testConfig())
	extracts := true

	ds := Datasource{
		TypeName:               "PublishedDatasource",
		ID:                     "ds-1",
		Name:                   "orders",
		ProjectName:            "Finance",
		HasExtracts:            &extracts,
		ExtractLastRefreshTime: "2023-04-01T10:00:00Z",
	}

	records := m.mapDatasource(ds, nil)

	snaps := snapshots(records)
	require.Len(t, snaps, 1)
	props := snaps[0].Properties
	require.NotNil(t, props)
	assert.Equal(t, "true", props.CustomProperties["hasExtracts"])
	assert.Equal(t, "2023-04-01T10:00:00Z", props.CustomProperties["extractLastRefreshTime"])
	assert.Equal(t, "PublishedDatasource", props.CustomProperties["type"])
	assert.Equal(t, []string{"Data Source"}, snaps[0].SubTypes)
	assert.Equal(t, []string{"ds-1"}, m.datasourceIDs.Snapshot())
}

func TestMapDatasourceMembershipOnlyForEmbedded(t *testing.T) {
	m := newMapper(testConfig())
	wb := Workbook{ID: "wb-1", Name: "Sales", ProjectName: "Finance"}

	embedded := m.mapDatasource(Datasource{TypeName: "EmbeddedDatasource", ID: "ds-1"}, &wb)
	published := m.mapDatasource(Datasource{TypeName: "PublishedDatasource", ID: "ds-2"}, nil)

	var memberships int
	for _, r := range embedded {
		if _, ok := r.(*models.ContainerMembership); ok {
			memberships++
		}
	}
	assert.Equal(t, 1, memberships)

	for _, r := range published {
		_, ok := r.(*models.ContainerMembership)
		assert.False(t, ok)
	}
}

func TestMapWorkbookContainerExternalURL(t *testing.T) {
	cfg := testConfig()
	m := newMapper(cfg)

	wb := Workbook{
		ID:   "wb-1",
		Name: "Sales",
		URI:  "sites/1/workbooks/4212/views",
	}

	records := m.mapWorkbookContainer(wb)
	snaps := snapshots(records)
	require.Len(t, snaps, 1)
	assert.Equal(t,
		"https://tableau.example.com/#/site/acme/workbooks/4212/views",
		snaps[0].Properties.ExternalURL)
	assert.Equal(t, models.EntityKindContainer, snaps[0].Kind)
	assert.Equal(t, []string{"Workbook"}, snaps[0].SubTypes)
}

func TestMapSheetExternalURLVariants(t *testing.T) {
	cfg := testConfig()
	m := newMapper(cfg)
	wb := Workbook{ID: "wb-1", Name: "Sales", ProjectName: "Finance"}

	t.Run("sheet with its own path", func(t *testing.T) {
		records := m.mapSheet(wb, Sheet{ID: "s-1", Name: "Revenue", Path: "Sales/Revenue"})
		chart := snapshots(records)[0].ChartInfo
		require.NotNil(t, chart)
		assert.Equal(t, "https://tableau.example.com/#/site/acme/views/Sales/Revenue", chart.ExternalURL)
	})

	t.Run("hidden sheet links through its dashboard", func(t *testing.T) {
		records := m.mapSheet(wb, Sheet{
			ID:                    "s-2",
			Name:                  "Hidden",
			ContainedInDashboards: []DashboardRef{{Path: "Sales/Overview"}},
		})
		chart := snapshots(records)[0].ChartInfo
		require.NotNil(t, chart)
		assert.Equal(t, "https://tableau.example.com/t/acme/authoring/Sales/Overview/Hidden", chart.ExternalURL)
	})

	t.Run("no path and no dashboard yields no URL", func(t *testing.T) {
		records := m.mapSheet(wb, Sheet{ID: "s-3", Name: "Orphan"})
		chart := snapshots(records)[0].ChartInfo
		require.NotNil(t, chart)
		assert.Equal(t, "", chart.ExternalURL)
	})
}

func TestMapSheetRecordsUpstreamDatasources(t *testing.T) {
	m := newMapper(testConfig())
	wb := Workbook{ID: "wb-1", Name: "Sales", ProjectName: "Finance"}

	records := m.mapSheet(wb, Sheet{
		ID:   "s-1",
		Name: "Revenue",
		UpstreamDatasources: []DatasourceRef{
			{ID: "ds-2", Name: "b"},
			{ID: "ds-1", Name: "a"},
		},
	})

	// Inputs keep the order the datasources appeared in, not sorted.
	chart := snapshots(records)[0].ChartInfo
	require.NotNil(t, chart)
	assert.Equal(t, []string{
		models.DatasetURN("ds-2", "PROD"),
		models.DatasetURN("ds-1", "PROD"),
	}, chart.Inputs)
	assert.Equal(t, []string{"ds-2", "ds-1"}, m.datasourceIDs.Snapshot())
}

func TestMapSheetFieldPropertiesSynthesizeDescriptions(t *testing.T) {
	m := newMapper(testConfig())
	wb := Workbook{ID: "wb-1", Name: "Sales", ProjectName: "Finance"}

	records := m.mapSheet(wb, Sheet{
		ID:   "s-1",
		Name: "Revenue",
		DatasourceFields: []Field{
			{Name: "margin", TypeName: "CalculatedField", Formula: "[amount] * [rate]"},
			{Name: "amount", Description: "gross amount"},
			{Name: "region"},
		},
	})

	chart := snapshots(records)[0].ChartInfo
	require.NotNil(t, chart)
	assert.Equal(t, map[string]string{
		"margin": "formula: [amount] * [rate]",
		"amount": "gross amount",
		"region": "",
	}, chart.CustomProperties)
}

func TestMapDashboardChartsAndTitle(t *testing.T) {
	m := newMapper(testConfig())
	wb := Workbook{ID: "wb-1", Name: "Sales", ProjectName: "Finance"}

	records := m.mapDashboard(wb, Dashboard{
		ID:     "d-1",
		Name:   "Over/View",
		Path:   "Sales/OverView",
		Sheets: []SheetRef{{ID: "s-1"}, {ID: "s-2"}},
	})

	info := snapshots(records)[0].DashboardInfo
	require.NotNil(t, info)
	assert.Equal(t, "Over|View", info.Title)
	assert.Equal(t, []string{models.ChartURN("s-1"), models.ChartURN("s-2")}, info.Charts)
	assert.Equal(t, "https://tableau.example.com/#/site/acme/views/Sales/OverView", info.DashboardURL)
}

func TestUpstreamTableRecordsKeepDiscoveryOrder(t *testing.T) {
	m := newMapper(testConfig())

	ds := Datasource{
		ID:                "ds-1",
		Name:              "orders",
		UpstreamDatabases: []DatabaseRef{{Name: "warehouse"}},
		UpstreamTables: []Table{
			{Name: "beta", Schema: "public", ConnectionType: "postgres", Columns: []Column{{Name: "id", RemoteType: "I4"}}},
			{Name: "alpha", Schema: "public", ConnectionType: "postgres", Columns: []Column{{Name: "id", RemoteType: "I4"}}},
		},
	}
	m.upstreamTableLineage("urn:ds", ds, "Finance", false)

	records := m.upstreamTableRecords()

	require.Len(t, records, 2)
	first := records[0].(*models.EntitySnapshot)
	second := records[1].(*models.EntitySnapshot)
	assert.Contains(t, first.URN, "beta")
	assert.Contains(t, second.URN, "alpha")
	assert.Equal(t, []string{"/prod/tableau/Finance/orders/beta"}, first.BrowsePaths)
	require.NotNil(t, first.Schema)
	assert.Equal(t, models.TypeTagNumber, first.Schema.Fields[0].Type)
}

func TestEntityTagsOnlyWhenIngestTagsEnabled(t *testing.T) {
	wb := Workbook{
		ID:   "wb-1",
		Name: "Sales",
		Tags: []*TagRef{{Name: "finance"}},
	}

	withTags := newMapper(testConfig())
	withTags.cfg.IngestTags = true
	tagged := snapshots(withTags.mapWorkbookContainer(wb))[0]
	assert.Equal(t, []string{"FINANCE"}, tagged.GlobalTags)

	withoutTags := newMapper(testConfig())
	plain := snapshots(withoutTags.mapWorkbookContainer(wb))[0]
	assert.Nil(t, plain.GlobalTags)
}
