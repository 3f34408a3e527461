package routes

import (
	"errors"
	"net/http"
	"strings"
	"syscall"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
	"github.com/wkalt/colq/query/executor"
	"github.com/wkalt/colq/query/plan"
	"github.com/wkalt/colq/query/ql"
	"github.com/wkalt/colq/util"
	"github.com/wkalt/colq/util/httputil"
	"github.com/wkalt/colq/util/log"
)

/*
The query route receives query strings, compiles them into an execution plan,
and streams the result rows back to the client as JSON lines.
*/

////////////////////////////////////////////////////////////////////////////////

// QueryRequest represents a query request.
type QueryRequest struct {
	Query string `json:"query"`
}

func (req QueryRequest) validate() error {
	if req.Query == "" {
		return errors.New("missing query")
	}
	if !strings.HasSuffix(strings.TrimSpace(req.Query), ";") {
		return errors.New("queries must be terminated with a semicolon")
	}
	return nil
}

func newQueryHandler(sf executor.ScanFactory, opts ...executor.RunOption) http.HandlerFunc {
	parser := ql.NewParser()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req := QueryRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(ctx, w, "error decoding request: %s", err)
			return
		}
		if err := req.validate(); err != nil {
			httputil.BadRequest(ctx, w, "invalid request: %s", err)
			return
		}
		ctx = log.AddTags(ctx, "query", req.Query)
		log.Infof(ctx, "query request")

		ast, err := parser.ParseString("", req.Query)
		if err != nil {
			httputil.BadRequest(ctx, w, "error parsing query: %s", err)
			return
		}
		qp, err := plan.CompileQuery(*ast)
		if err != nil {
			if errors.Is(err, plan.BadPlanError{}) {
				httputil.BadRequest(ctx, w, "%w", err)
				return
			}
			httputil.InternalServerError(ctx, w, "error compiling query: %s", err)
			return
		}

		ctx = util.WithContext(ctx, "query")
		results := ndjsonResults{ResultWriter: executor.NewJSONWriter(w), w: w}
		if err := executor.Run(ctx, results, qp, sf, opts...); err != nil {
			if errors.Is(err, executor.ErrTableNotFound) {
				httputil.BadRequest(ctx, w, "%w", err)
				return
			}
			if err := clientError(err); err != nil {
				log.Infof(ctx, "Client closed connection: %s", err)
				return
			}
			httputil.InternalServerError(ctx, w, "error executing query: %s", err)
			return
		}
		if stats, err := util.StatsFromContext(ctx).ToJSON(); err == nil {
			log.Debugw(ctx, "query complete", "stats", string(stats))
		}
	}
}

// ndjsonResults sets the response content type once the query has compiled
// and output begins. Errors raised before then are sent as JSON.
type ndjsonResults struct {
	executor.ResultWriter
	w http.ResponseWriter
}

func (r ndjsonResults) WriteSchema(schema *arrow.Schema) error {
	r.w.Header().Set("Content-Type", "application/x-ndjson")
	return r.ResultWriter.WriteSchema(schema)
}

func (r ndjsonResults) WriteExplain(explain string) error {
	r.w.Header().Set("Content-Type", "application/x-ndjson")
	return r.ResultWriter.WriteExplain(explain)
}

// clientError returns err if it was caused by the client going away.
func clientError(err error) error {
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return err
	}
	return nil
}
