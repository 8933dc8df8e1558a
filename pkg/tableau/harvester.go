package tableau

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lodestar-data/tableau-harvester/pkg/config"
	"github.com/lodestar-data/tableau-harvester/pkg/logging"
	"github.com/lodestar-data/tableau-harvester/pkg/models"
	"github.com/lodestar-data/tableau-harvester/pkg/sink"
)

// Harvester drives one harvest run: sign in, walk workbooks, batch-fetch
// the datasources and custom SQL tables the workbooks referenced, and hand
// every produced record to the sink. A Harvester is single-use and not safe
// for concurrent use; build a fresh one per run.
type Harvester struct {
	cfg    *config.Config
	server Server
	sink   sink.Sink
	logger *zap.Logger

	report *Report
	mapper *mapper
}

// NewHarvester wires a harvester for one run.
func NewHarvester(cfg *config.Config, server Server, out sink.Sink, logger *zap.Logger) *Harvester {
	return &Harvester{
		cfg:    cfg,
		server: server,
		sink:   out,
		logger: logger,
		report: NewReport(logger),
		mapper: newMapper(cfg),
	}
}

// Run executes the harvest. Problems are collected on the returned Report
// rather than returned as an error: a sign-in rejection or metadata-query
// failure ends the run with the report's Failures populated.
func (h *Harvester) Run(ctx context.Context) *Report {
	if err := h.server.SignIn(ctx); err != nil {
		h.report.Failure("tableau-login",
			"Unable to login with credentials provided: "+logging.SanitizeError(err))
		return h.report
	}
	defer func() {
		if err := h.server.SignOut(ctx); err != nil {
			h.logger.Warn("Sign-out failed", zap.String("error", logging.SanitizeError(err)))
		}
	}()

	// A metadata-query failure in any phase aborts the remaining phases
	// and is reported exactly once. There are no retries.
	if err := h.harvest(ctx); err != nil {
		var queryErr *MetadataQueryError
		if errors.As(err, &queryErr) {
			h.report.Failure("tableau-metadata",
				"Unable to retrieve metadata from tableau. Information: "+logging.SanitizeError(queryErr))
		} else {
			h.report.Failure("tableau-metadata", logging.SanitizeError(err))
		}
	}

	h.logger.Info("Harvest finished",
		zap.Int("records", h.report.RecordsEmitted),
		zap.Int("warnings", len(h.report.Warnings)),
		zap.Int("failures", len(h.report.Failures)),
	)
	return h.report
}

func (h *Harvester) harvest(ctx context.Context) error {
	if err := h.harvestWorkbooks(ctx); err != nil {
		return err
	}
	if h.mapper.datasourceIDs.Len() > 0 {
		if err := h.harvestPublishedDatasources(ctx); err != nil {
			return err
		}
	}
	if h.mapper.customSQLIDs.Len() > 0 {
		if err := h.harvestCustomSQL(ctx); err != nil {
			return err
		}
	}
	return nil
}

// harvestWorkbooks paginates the workbook connection, filtered to the
// configured projects. Each workbook fans out into its container, sheets,
// dashboards and embedded datasources; the accumulated upstream-table
// placeholders are refreshed after every workbook.
func (h *Harvester) harvestWorkbooks(ctx context.Context) error {
	return h.forEachPage(ctx, workbookQuery, workbooksConnection,
		projectFilter(h.cfg.Projects), h.cfg.PageSize,
		func(nodes json.RawMessage) error {
			var workbooks []Workbook
			if err := json.Unmarshal(nodes, &workbooks); err != nil {
				return &MetadataQueryError{
					Connection: workbooksConnection,
					Err:        fmt.Errorf("failed to decode workbook nodes: %w", err),
				}
			}

			for _, wb := range workbooks {
				h.emit(ctx, h.mapper.mapWorkbookContainer(wb))
				for _, sheet := range wb.Sheets {
					h.emit(ctx, h.mapper.mapSheet(wb, sheet))
				}
				for _, dashboard := range wb.Dashboards {
					h.emit(ctx, h.mapper.mapDashboard(wb, dashboard))
				}
				for _, ds := range wb.EmbeddedDatasources {
					h.emit(ctx, h.mapper.mapDatasource(ds, &wb))
				}
				h.emit(ctx, h.mapper.upstreamTableRecords())
			}
			return nil
		})
}

// harvestPublishedDatasources batch-fetches exactly the datasources the
// workbook pass recorded, in one filtered page.
func (h *Harvester) harvestPublishedDatasources(ctx context.Context) error {
	ids := h.mapper.datasourceIDs.Snapshot()
	return h.forEachPage(ctx, publishedDatasourceQuery, publishedDatasourcesConnection,
		idFilter(ids), len(ids),
		func(nodes json.RawMessage) error {
			var datasources []Datasource
			if err := json.Unmarshal(nodes, &datasources); err != nil {
				return &MetadataQueryError{
					Connection: publishedDatasourcesConnection,
					Err:        fmt.Errorf("failed to decode datasource nodes: %w", err),
				}
			}

			for _, ds := range datasources {
				h.emit(ctx, h.mapper.mapDatasource(ds, nil))
			}
			return nil
		})
}

// harvestCustomSQL batch-fetches the custom SQL tables discovered through
// datasource column fields and resolves their lineage in both directions.
func (h *Harvester) harvestCustomSQL(ctx context.Context) error {
	ids := h.mapper.customSQLIDs.Snapshot()
	return h.forEachPage(ctx, customSQLQuery, customSQLTablesConnection,
		idFilter(ids), len(ids),
		func(nodes json.RawMessage) error {
			var tables []CustomSQLTable
			if err := json.Unmarshal(nodes, &tables); err != nil {
				return &MetadataQueryError{
					Connection: customSQLTablesConnection,
					Err:        fmt.Errorf("failed to decode custom SQL nodes: %w", err),
				}
			}

			for _, csql := range uniqueCustomSQL(tables) {
				h.emit(ctx, h.mapper.mapCustomSQL(csql))
			}
			return nil
		})
}

// emit hands records to the sink one at a time. Sink errors are recorded as
// warnings and emission continues; only query-layer failures stop a harvest.
func (h *Harvester) emit(ctx context.Context, records []models.Record) {
	for _, record := range records {
		if err := h.sink.Emit(ctx, record); err != nil {
			h.report.Warning("sink",
				fmt.Sprintf("Record %s: %s", record.RecordID(), logging.SanitizeError(err)))
			continue
		}
		h.report.RecordEmitted()
	}
}
