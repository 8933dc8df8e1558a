package tableau

import (
	"html"
	"strings"

	"github.com/lodestar-data/tableau-harvester/pkg/models"
)

// fieldTypeMapping maps Tableau native/remote type names onto the canonical
// schema type vocabulary. Unknown native types map to the null tag through
// fieldTypeFor — never an error.
var fieldTypeMapping = map[string]models.SchemaTypeTag{
	"INTEGER":  models.TypeTagNumber,
	"REAL":     models.TypeTagNumber,
	"STRING":   models.TypeTagString,
	"DATE":     models.TypeTagDate,
	"DATETIME": models.TypeTagTime,
	"BOOLEAN":  models.TypeTagBoolean,
	"TABLE":    models.TypeTagArray,

	// Remote (driver-level) type names seen on upstream table and custom
	// SQL columns.
	"I2":          models.TypeTagNumber,
	"I4":          models.TypeTagNumber,
	"I8":          models.TypeTagNumber,
	"R4":          models.TypeTagNumber,
	"R8":          models.TypeTagNumber,
	"CY":          models.TypeTagNumber,
	"DECIMAL":     models.TypeTagNumber,
	"NUMERIC":     models.TypeTagNumber,
	"BOOL":        models.TypeTagBoolean,
	"STR":         models.TypeTagString,
	"WSTR":        models.TypeTagString,
	"BSTR":        models.TypeTagString,
	"DBDATE":      models.TypeTagDate,
	"DBTIME":      models.TypeTagTime,
	"DBTIMESTAMP": models.TypeTagTime,
	"FILETIME":    models.TypeTagTime,
}

// unknownNativeType stands in when the source omits a field's type.
const unknownNativeType = "UNKNOWN"

// fieldTypeFor resolves a native type name, falling back to the null tag.
func fieldTypeFor(nativeType string) models.SchemaTypeTag {
	if tag, ok := fieldTypeMapping[nativeType]; ok {
		return tag
	}
	return models.TypeTagNull
}

// makeDescription synthesizes a field/entity description: the provided
// description when non-empty, else the formula, else "". Output is never
// absent.
func makeDescription(description, formula string) string {
	if description != "" {
		return description
	}
	if formula != "" {
		return "formula: " + formula
	}
	return ""
}

var queryCleaner = strings.NewReplacer("<<", "<", ">>", ">", "\n\n", "\n")

// cleanQuery normalizes a custom SQL query for display: Tableau doubles
// angle brackets and blank lines in the metadata API payload and HTML-
// escapes the rest.
func cleanQuery(query string) string {
	return html.UnescapeString(queryCleaner.Replace(query))
}

// sheetFieldSource resolves the node a sheet field's display data lives on.
// DatasourceField entries proxy a published datasource's field; everything
// else carries its own data.
func sheetFieldSource(f Field) Field {
	if f.TypeName == "DatasourceField" {
		if f.RemoteField != nil {
			return *f.RemoteField
		}
		return Field{}
	}
	return f
}

// fieldTags builds schema-field tags from the field's role, type name and
// aggregation, dropping empty entries.
func fieldTags(f Field) []string {
	var tags []string
	for _, t := range []string{f.Role, f.TypeName, f.Aggregation} {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// entityTags extracts entity tag names: null entries filtered, names
// uppercased.
func entityTags(tags []*TagRef) []string {
	var out []string
	for _, t := range tags {
		if t == nil || t.Name == "" {
			continue
		}
		out = append(out, strings.ToUpper(t.Name))
	}
	return out
}

// uniqueCustomSQL drops custom SQL nodes whose query text was already seen,
// keeping the first occurrence. Tableau materializes one node per
// datasource referencing the same custom SQL.
func uniqueCustomSQL(nodes []CustomSQLTable) []CustomSQLTable {
	seen := make(map[string]struct{}, len(nodes))
	var out []CustomSQLTable
	for _, n := range nodes {
		if _, ok := seen[n.Query]; ok {
			continue
		}
		seen[n.Query] = struct{}{}
		out = append(out, n)
	}
	return out
}
