package models

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Platform is the source platform name baked into every URN.
const Platform = "tableau"

// connectionTypePlatforms maps Tableau connection type names onto the
// platform names used in table URNs. Types not listed pass through as-is.
var connectionTypePlatforms = map[string]string{
	"textscan":               "file",
	"excel-direct":           "file",
	"google-sheets":          "file",
	"sqlserver":              "mssql",
	"salesforce":             "salesforce",
	"redshift":               "redshift",
	"bigquery":               "bigquery",
	"snowflake":              "snowflake",
	"postgres":               "postgres",
	"mysql":                  "mysql",
	"oracle":                 "oracle",
	"hyper":                  "hive",
	"webdata-direct:marketo": "marketo",
}

// DatasetURN builds the URN for a dataset on the Tableau platform.
// Deterministic in (id, env).
func DatasetURN(id, env string) string {
	return fmt.Sprintf("urn:li:dataset:(urn:li:dataPlatform:%s,%s,%s)", Platform, id, env)
}

// TableURN builds the URN for an upstream physical table on its native
// platform. Name parts are db.schema.table, skipping empty components.
func TableURN(env, upstreamDB, connectionType, schema, table string) string {
	platform := connectionType
	if mapped, ok := connectionTypePlatforms[connectionType]; ok {
		platform = mapped
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{upstreamDB, schema, table} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	name := strings.ToLower(strings.Join(parts, "."))

	return fmt.Sprintf("urn:li:dataset:(urn:li:dataPlatform:%s,%s,%s)", platform, name, env)
}

// ChartURN builds the URN for a chart (Tableau sheet).
func ChartURN(id string) string {
	return fmt.Sprintf("urn:li:chart:(%s,%s)", Platform, id)
}

// DashboardURN builds the URN for a dashboard.
func DashboardURN(id string) string {
	return fmt.Sprintf("urn:li:dashboard:(%s,%s)", Platform, id)
}

// UserURN builds the URN for a user.
func UserURN(username string) string {
	return fmt.Sprintf("urn:li:corpuser:%s", username)
}

// PlatformURN is the dataPlatform URN used in schema metadata.
func PlatformURN() string {
	return fmt.Sprintf("urn:li:dataPlatform:%s", Platform)
}

// ContainerURN builds the URN for a workbook container. The GUID is the md5
// of the canonical key JSON, so it is stable across harvest runs.
func ContainerURN(workbookID string) string {
	key := struct {
		Platform   string `json:"platform"`
		WorkbookID string `json:"workbookId"`
	}{Platform: Platform, WorkbookID: workbookID}

	raw, _ := json.Marshal(key)
	sum := md5.Sum(raw)
	return fmt.Sprintf("urn:li:container:%s", hex.EncodeToString(sum[:]))
}
