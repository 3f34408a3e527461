package plan

import (
	"fmt"
	"strings"

	"github.com/wkalt/colq/query/ql"
)

/*
The plan module is responsible for converting raw query AST into a tree of "plan
nodes". The plan nodes mirror the structure of the executor nodes in most
respects, but are a bit more amenable to generic manipulation without
invoking the executor's dependencies on the storage system.
*/

////////////////////////////////////////////////////////////////////////////////

// NodeType is the type of a plan node.
type NodeType int

const (
	// Scan is a scan node.
	Scan NodeType = iota
	// Limit is a limit node.
	Limit
)

// String returns a string representation of the node type.
func (n NodeType) String() string {
	switch n {
	case Scan:
		return "scan"
	case Limit:
		return "limit"
	default:
		panic("unknown")
	}
}

// Node represents a plan node.
type Node struct {
	Type     NodeType
	Args     []any
	Children []*Node

	Limit *int
}

// Query is a compiled query.
type Query struct {
	Root *Node

	// Concurrency is the number of partitions that may be read at once. Zero
	// means the executor's default.
	Concurrency int
	Explain     bool
}

// String returns a string representation of the node.
func (n Node) String() string {
	if n.Type == Limit {
		return fmt.Sprintf("[limit %d %s]", *n.Limit, n.Children[0])
	}
	children := make([]string, len(n.Children))
	for i, c := range n.Children {
		children[i] = c.String()
	}
	args := ""
	if len(n.Args) > 0 {
		for i, arg := range n.Args {
			if i > 0 {
				args += " "
			}
			args += fmt.Sprintf("%v", arg)
		}
		args = " " + args
	}
	childrenTerm := ""
	if len(children) > 0 {
		childrenTerm = " " + strings.Join(children, " ")
	}
	return fmt.Sprintf("[%s%s%s]", n.Type, args, childrenTerm)
}

// CompileQuery compiles an AST query to a plan.
func CompileQuery(ast ql.Query) (*Query, error) {
	if ast.From == "" {
		return nil, BadPlanError{fmt.Errorf("missing table")}
	}
	query := &Query{
		Root: &Node{
			Type: Scan,
			Args: []any{ast.From},
		},
		Explain: ast.Explain,
	}
	seen := map[string]bool{}
	for _, clause := range ast.Clauses {
		keyword := strings.ToLower(clause.Keyword)
		if seen[keyword] {
			return nil, BadPlanError{fmt.Errorf("duplicate %s clause", keyword)}
		}
		seen[keyword] = true
		switch keyword {
		case "limit":
			if clause.Value < 0 {
				return nil, BadPlanError{fmt.Errorf("limit must be non-negative, got %d", clause.Value)}
			}
			limit := clause.Value
			query.Root = &Node{
				Type:     Limit,
				Limit:    &limit,
				Children: []*Node{query.Root},
			}
		case "concurrency":
			if clause.Value < 1 {
				return nil, BadPlanError{fmt.Errorf("concurrency must be positive, got %d", clause.Value)}
			}
			query.Concurrency = clause.Value
		default:
			return nil, BadPlanError{fmt.Errorf("unrecognized clause %s", clause.Keyword)}
		}
	}
	return query, nil
}
