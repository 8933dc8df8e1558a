package tableau

import (
	"strings"

	"github.com/lodestar-data/tableau-harvester/pkg/models"
)

// siteFragment builds the "#"-anchored site segment of a Tableau web URL.
func (m *mapper) siteFragment() string {
	if m.cfg.Site == "" {
		return ""
	}
	return "/site/" + m.cfg.Site
}

// mapWorkbookContainer translates a workbook node into a container snapshot.
// Sheets, dashboards and embedded datasources reference this container
// through membership records.
func (m *mapper) mapWorkbookContainer(wb Workbook) []models.Record {
	externalURL := ""
	// The metadata API exposes the workbook URI as
	// "site/<site>/workbooks/<id>/..."; only the trailing workbook part is
	// usable for a web link.
	if idx := strings.Index(wb.URI, "/workbooks/"); idx >= 0 {
		externalURL = m.cfg.ConnectURI + "/#" + m.siteFragment() + wb.URI[idx:]
	}

	snapshot := &models.EntitySnapshot{
		URN:  models.ContainerURN(wb.ID),
		Kind: models.EntityKindContainer,
		Properties: &models.EntityProperties{
			Name:        wb.Name,
			Description: wb.Description,
			ExternalURL: externalURL,
		},
		Ownership: m.ownership(wb.Owner.Username),
		SubTypes:  []string{"Workbook"},
	}
	if m.cfg.IngestTags {
		snapshot.GlobalTags = entityTags(wb.Tags)
	}
	return []models.Record{snapshot}
}

// mapSheet translates one sheet node into a chart snapshot plus its
// workbook-container membership.
func (m *mapper) mapSheet(wb Workbook, sheet Sheet) []models.Record {
	chartURN := models.ChartURN(sheet.ID)

	externalURL := ""
	switch {
	case sheet.Path != "":
		externalURL = m.cfg.ConnectURI + "/#" + m.siteFragment() + "/views/" + sheet.Path
	case len(sheet.ContainedInDashboards) > 0:
		// Hidden sheets carry no path of their own; link into the first
		// dashboard's authoring view instead.
		sitePart := ""
		if m.cfg.Site != "" {
			sitePart = "/t/" + m.cfg.Site
		}
		externalURL = m.cfg.ConnectURI + sitePart + "/authoring/" +
			sheet.ContainedInDashboards[0].Path + "/" + sheet.Name
	}

	// Surface the sheet's datasource fields as custom properties, name to
	// description, resolving derived fields through their remote field.
	var fieldProps map[string]string
	if len(sheet.DatasourceFields) > 0 {
		fieldProps = make(map[string]string, len(sheet.DatasourceFields))
		for _, field := range sheet.DatasourceFields {
			source := sheetFieldSource(field)
			if source.Name == "" {
				continue
			}
			fieldProps[source.Name] = makeDescription(source.Description, source.Formula)
		}
	}

	var inputs []string
	for _, ds := range sheet.UpstreamDatasources {
		if ds.ID == "" {
			continue
		}
		m.datasourceIDs.Record(ds.ID)
		inputs = append(inputs, models.DatasetURN(ds.ID, m.cfg.Env))
	}

	snapshot := &models.EntitySnapshot{
		URN:  chartURN,
		Kind: models.EntityKindChart,
		ChartInfo: &models.ChartInfo{
			Title:            sheet.Name,
			Description:      "",
			LastModified:     m.lastModified(wb.Owner.Username, sheet.CreatedAt, sheet.UpdatedAt),
			ExternalURL:      externalURL,
			Inputs:           inputs,
			CustomProperties: fieldProps,
		},
		BrowsePaths: []string{
			"/" + models.Platform + "/" + sanitizePathComponent(wb.ProjectName) +
				"/" + sanitizePathComponent(wb.Name) +
				"/" + sanitizePathComponent(sheet.Name),
		},
		Ownership: m.ownership(wb.Owner.Username),
	}
	if m.cfg.IngestTags {
		snapshot.GlobalTags = entityTags(sheet.Tags)
	}

	return []models.Record{
		snapshot,
		&models.ContainerMembership{
			ContainerURN: models.ContainerURN(wb.ID),
			EntityURN:    chartURN,
			EntityKind:   models.EntityKindChart,
		},
	}
}

// mapDashboard translates one dashboard node into a dashboard snapshot plus
// its workbook-container membership.
func (m *mapper) mapDashboard(wb Workbook, dashboard Dashboard) []models.Record {
	dashboardURN := models.DashboardURN(dashboard.ID)
	title := sanitizePathComponent(dashboard.Name)

	charts := make([]string, 0, len(dashboard.Sheets))
	for _, sheet := range dashboard.Sheets {
		charts = append(charts, models.ChartURN(sheet.ID))
	}

	snapshot := &models.EntitySnapshot{
		URN:  dashboardURN,
		Kind: models.EntityKindDashboard,
		DashboardInfo: &models.DashboardInfo{
			Title:        title,
			Description:  "",
			Charts:       charts,
			LastModified: m.lastModified(wb.Owner.Username, dashboard.CreatedAt, dashboard.UpdatedAt),
			DashboardURL: m.cfg.ConnectURI + "/#" + m.siteFragment() + "/views/" + dashboard.Path,
		},
		BrowsePaths: []string{
			"/" + models.Platform + "/" + sanitizePathComponent(wb.ProjectName) +
				"/" + sanitizePathComponent(wb.Name) +
				"/" + title,
		},
		Ownership: m.ownership(wb.Owner.Username),
	}

	return []models.Record{
		snapshot,
		&models.ContainerMembership{
			ContainerURN: models.ContainerURN(wb.ID),
			EntityURN:    dashboardURN,
			EntityKind:   models.EntityKindDashboard,
		},
	}
}
