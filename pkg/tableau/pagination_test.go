package tableau

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lodestar-data/tableau-harvester/pkg/config"
	"github.com/lodestar-data/tableau-harvester/pkg/sink"
)

func newTestHarvester(t *testing.T, cfg *config.Config, server Server) (*Harvester, *sink.MemorySink) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{
			ConnectURI: "https://tableau.example.com",
			PageSize:   10,
			Env:        "PROD",
		}
	}
	out := sink.NewMemorySink()
	return NewHarvester(cfg, server, out, zap.NewNop()), out
}

func TestNextPageCount(t *testing.T) {
	tests := []struct {
		name     string
		pageSize int
		current  int
		total    int
		want     int
	}{
		{name: "full page", pageSize: 10, current: 0, total: 25, want: 10},
		{name: "second full page", pageSize: 10, current: 10, total: 25, want: 10},
		{name: "final partial page", pageSize: 10, current: 20, total: 25, want: 5},
		{name: "exact fit", pageSize: 10, current: 10, total: 20, want: 10},
		{name: "zero total", pageSize: 10, current: 0, total: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextPageCount(tt.pageSize, tt.current, tt.total))
		})
	}
}

func TestForEachPageOffsetSequence(t *testing.T) {
	server := &fakeServer{
		respond: func(call queryCall) (*QueryResult, error) {
			// 25 nodes total: probe, then 10, 10, 5.
			hasNext := call.offset+call.first < 25
			if call.first == 0 {
				hasNext = true
			}
			return page(`[]`, 25, hasNext), nil
		},
	}
	h, _ := newTestHarvester(t, nil, server)

	pages := 0
	err := h.forEachPage(context.Background(), "{ id }", workbooksConnection, "", 10,
		func(nodes json.RawMessage) error {
			pages++
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, 3, pages)
	require.Len(t, server.calls, 4)
	assert.Equal(t, queryCall{connection: workbooksConnection, first: 0, offset: 0}, server.calls[0])
	assert.Equal(t, queryCall{connection: workbooksConnection, first: 10, offset: 0}, server.calls[1])
	assert.Equal(t, queryCall{connection: workbooksConnection, first: 10, offset: 10}, server.calls[2])
	assert.Equal(t, queryCall{connection: workbooksConnection, first: 5, offset: 20}, server.calls[3])
}

func TestForEachPageZeroTotalTerminatesImmediately(t *testing.T) {
	server := &fakeServer{
		respond: func(call queryCall) (*QueryResult, error) {
			return page(`[]`, 0, false), nil
		},
	}
	h, _ := newTestHarvester(t, nil, server)

	called := false
	err := h.forEachPage(context.Background(), "{ id }", workbooksConnection, "", 10,
		func(nodes json.RawMessage) error {
			called = true
			return nil
		})

	require.NoError(t, err)
	assert.False(t, called)
	assert.Len(t, server.calls, 1)
}

func TestGetConnectionReportsGraphQLErrorsAsWarnings(t *testing.T) {
	server := &fakeServer{
		respond: func(call queryCall) (*QueryResult, error) {
			return &QueryResult{
				Connection: Connection{Nodes: json.RawMessage(`[]`)},
				Errors:     []string{`{"message":"NODE_LIMIT_EXCEEDED"}`},
			}, nil
		},
	}
	h, _ := newTestHarvester(t, nil, server)

	conn, err := h.getConnection(context.Background(), "{ id }", workbooksConnection, "", 0, 0)

	require.NoError(t, err)
	assert.NotNil(t, conn)
	require.Len(t, h.report.Warnings["tableau-metadata"], 1)
	assert.Contains(t, h.report.Warnings["tableau-metadata"][0], "NODE_LIMIT_EXCEEDED")
	assert.False(t, h.report.Failed())
}

func TestForEachPagePropagatesQueryError(t *testing.T) {
	queryErr := &MetadataQueryError{Connection: workbooksConnection, Err: errors.New("boom")}
	server := &fakeServer{
		respond: func(call queryCall) (*QueryResult, error) {
			return nil, queryErr
		},
	}
	h, _ := newTestHarvester(t, nil, server)

	err := h.forEachPage(context.Background(), "{ id }", workbooksConnection, "", 10,
		func(nodes json.RawMessage) error { return nil })

	var got *MetadataQueryError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, workbooksConnection, got.Connection)
}

func TestProjectFilter(t *testing.T) {
	assert.Equal(t, "", projectFilter(nil))
	assert.Equal(t, `projectNameWithin: ["default","Analytics"]`, projectFilter([]string{"default", "Analytics"}))
}

func TestIDFilter(t *testing.T) {
	assert.Equal(t, `idWithin: ["a","b"]`, idFilter([]string{"a", "b"}))
}
