package ql

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

/*
This file contains a participle grammar for the colq query language. A query
names a table to scan and optional paging and execution clauses:

	[explain] from <table> [limit <n>] [concurrency <n>];
*/

////////////////////////////////////////////////////////////////////////////////

var (
	Options = []participle.Option{ // nolint:gochecknoglobals
		participle.Lexer(
			lexer.MustSimple([]lexer.SimpleRule{
				{Name: "Word", Pattern: `[a-zA-Z_/\.][a-zA-Z0-9_/\.-]*`},
				{Name: "QuotedString", Pattern: `"(?:\\.|[^"])*"`},
				{Name: "whitespace", Pattern: `\s+`},
				{Name: "Integer", Pattern: `[0-9]+`},
				{Name: "Terminator", Pattern: `;`},
			}),
		),
		participle.Unquote("QuotedString"),
		participle.CaseInsensitive("Word"),
	}
)

// Query represents a query in the colq query language.
type Query struct {
	Explain    bool     `@"explain"?`
	From       string   `"from" @(Word | QuotedString)`
	Clauses    []Clause `@@*`
	Terminator string   `";"`
}

// Clause represents a limit or concurrency term.
type Clause struct {
	Keyword string `@("limit" | "concurrency")`
	Value   int    `@Integer`
}

// NewParser returns a new query parser.
func NewParser() *participle.Parser[Query] {
	return participle.MustBuild[Query](Options...)
}
