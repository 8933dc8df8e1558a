package tableau

import (
	"context"
	"encoding/json"
)

// queryCall records one Query invocation for assertions.
type queryCall struct {
	connection string
	first      int
	offset     int
	filter     string
}

// fakeServer scripts the Tableau server surface for tests. respond receives
// every Query call and returns the page for it.
type fakeServer struct {
	signInErr  error
	signOutErr error

	signIns  int
	signOuts int
	calls    []queryCall

	respond func(call queryCall) (*QueryResult, error)
}

func (f *fakeServer) SignIn(ctx context.Context) error {
	f.signIns++
	return f.signInErr
}

func (f *fakeServer) SignOut(ctx context.Context) error {
	f.signOuts++
	return f.signOutErr
}

func (f *fakeServer) Query(ctx context.Context, nodeQuery, connectionName string, first, offset int, filter string) (*QueryResult, error) {
	call := queryCall{connection: connectionName, first: first, offset: offset, filter: filter}
	f.calls = append(f.calls, call)
	return f.respond(call)
}

var _ Server = (*fakeServer)(nil)

// page builds a QueryResult with the given nodes JSON and page bookkeeping.
func page(nodes string, totalCount int, hasNextPage bool) *QueryResult {
	return &QueryResult{
		Connection: Connection{
			Nodes:      json.RawMessage(nodes),
			TotalCount: totalCount,
			PageInfo:   PageInfo{HasNextPage: hasNextPage},
		},
	}
}

// emptyPage is a page with no nodes for connections a test does not use.
func emptyPage() *QueryResult {
	return page(`[]`, 0, false)
}
