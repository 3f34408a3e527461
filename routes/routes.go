package routes

import (
	"github.com/gorilla/mux"
	"github.com/wkalt/colq/query/executor"
	"github.com/wkalt/colq/util/mw"
)

// MakeRoutes builds the HTTP routes of the query service. Tables are resolved
// through sf, and opts are applied to every query.
func MakeRoutes(sf executor.ScanFactory, opts ...executor.RunOption) *mux.Router {
	r := mux.NewRouter()
	r.Use(mw.WithRequestID, mw.WithRequestLogging)
	r.HandleFunc("/query", newQueryHandler(sf, opts...)).Methods("POST")
	r.HandleFunc("/tables/{table:.+}", newTableHandler(sf)).Methods("GET")
	return r
}
