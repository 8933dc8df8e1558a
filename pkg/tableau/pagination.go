package tableau

import (
	"context"
	"encoding/json"
	"fmt"
)

// Connection names on the Tableau Metadata API.
const (
	workbooksConnection            = "workbooksConnection"
	publishedDatasourcesConnection = "publishedDatasourcesConnection"
	customSQLTablesConnection      = "customSQLTablesConnection"
)

// nextPageCount returns how many nodes to request for the page starting at
// current. The final page requests exactly the remainder.
func nextPageCount(pageSize, current, total int) int {
	if current+pageSize < total {
		return pageSize
	}
	return total - current
}

// projectFilter builds a projectNameWithin filter body, or "" when the
// project list is empty (no filtering).
func projectFilter(projects []string) string {
	if len(projects) == 0 {
		return ""
	}
	names, _ := json.Marshal(projects)
	return fmt.Sprintf("projectNameWithin: %s", names)
}

// idFilter builds an idWithin filter body.
func idFilter(ids []string) string {
	encoded, _ := json.Marshal(ids)
	return fmt.Sprintf("idWithin: %s", encoded)
}

// getConnection executes one page fetch. GraphQL error payloads are
// reported as warnings and whatever partial data is present is returned —
// an empty nodes page is valid. Structural failures surface as
// *MetadataQueryError and abort the harvest.
func (h *Harvester) getConnection(ctx context.Context, nodeQuery, connectionName, filter string, count, offset int) (*Connection, error) {
	result, err := h.server.Query(ctx, nodeQuery, connectionName, count, offset, filter)
	if err != nil {
		return nil, err
	}

	for _, gqlErr := range result.Errors {
		h.report.Warning("tableau-metadata",
			fmt.Sprintf("Connection: %s Error: %s", connectionName, gqlErr))
	}

	return &result.Connection, nil
}

// forEachPage drives one connection through the probe-then-page loop. The
// first call requests zero nodes purely to learn totalCount; the loop then
// advances the offset by each requested count until hasNextPage is false.
// Zero total results never enters the loop.
func (h *Harvester) forEachPage(ctx context.Context, nodeQuery, connectionName, filter string, pageSize int, fn func(nodes json.RawMessage) error) error {
	conn, err := h.getConnection(ctx, nodeQuery, connectionName, filter, 0, 0)
	if err != nil {
		return err
	}

	totalCount := conn.TotalCount
	hasNextPage := conn.PageInfo.HasNextPage

	currentCount := 0
	for hasNextPage {
		count := nextPageCount(pageSize, currentCount, totalCount)
		if count <= 0 {
			break
		}

		conn, err = h.getConnection(ctx, nodeQuery, connectionName, filter, count, currentCount)
		if err != nil {
			return err
		}

		totalCount = conn.TotalCount
		hasNextPage = conn.PageInfo.HasNextPage
		currentCount += count

		if err := fn(conn.Nodes); err != nil {
			return err
		}
	}

	return nil
}
