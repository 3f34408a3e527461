package routes

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/wkalt/colq/query/executor"
	"github.com/wkalt/colq/util/httputil"
	"github.com/wkalt/colq/util/log"
)

// Field describes one column of a table.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// TableResponse describes a table.
type TableResponse struct {
	Table      string  `json:"table"`
	Partitions int     `json:"partitions"`
	Fields     []Field `json:"fields"`
}

func newTableHandler(sf executor.ScanFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		table := mux.Vars(r)["table"]
		scan, err := sf(ctx, table)
		if err != nil {
			if errors.Is(err, executor.ErrTableNotFound) {
				httputil.NotFound(ctx, w, "%w", err)
				return
			}
			httputil.InternalServerError(ctx, w, "error describing table: %s", err)
			return
		}
		resp := TableResponse{
			Table:      table,
			Partitions: scan.OutputPartitioning().PartitionCount(),
			Fields:     []Field{},
		}
		for _, field := range scan.Schema().Fields() {
			resp.Fields = append(resp.Fields, Field{
				Name:     field.Name,
				Type:     field.Type.String(),
				Nullable: field.Nullable,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Errorw(ctx, "error writing response", "error", err)
		}
	}
}
