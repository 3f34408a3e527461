package routes

import (
	"net/http/httptest"
	"testing"

	"github.com/wkalt/colq/query/executor"
)

// MakeTestRoutes serves the routes on a test server and returns its URL. The
// server is closed when the test completes.
func MakeTestRoutes(t *testing.T, sf executor.ScanFactory, opts ...executor.RunOption) string {
	t.Helper()
	srv := httptest.NewServer(MakeRoutes(sf, opts...))
	t.Cleanup(srv.Close)
	return srv.URL
}
