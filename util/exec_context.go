package util

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
)

/*
The execution context accumulates named statistics while a query runs. It is
carried on the context.Context, so operators deep in a plan can record values
without threading a stats object through every constructor. Operators running
on different goroutines may update the same context concurrently.
*/

////////////////////////////////////////////////////////////////////////////////

type contextKey int

const (
	ContextKey contextKey = iota
)

// Context is a named collection of execution statistics.
type Context struct {
	Name     string             `json:"name"`
	Values   map[string]float64 `json:"values"`
	Data     map[string]string  `json:"data"`
	Children []*Context         `json:"children"`

	mtx *sync.Mutex
}

func newContext(name string) *Context {
	return &Context{
		Name:   name,
		Values: make(map[string]float64),
		Data:   make(map[string]string),
		mtx:    &sync.Mutex{},
	}
}

// WithContext attaches a new execution context to ctx.
func WithContext(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKey, newContext(name))
}

// IncContextValue increments a value in the execution context.
func IncContextValue(ctx context.Context, name string, inc float64) {
	c := fromContext(ctx)
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.Values[name] += inc
}

// SetContextValue sets a value in the execution context.
func SetContextValue(ctx context.Context, name string, value float64) {
	c := fromContext(ctx)
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.Values[name] = value
}

// SetContextData sets a string datum in the execution context.
func SetContextData(ctx context.Context, key string, data string) {
	c := fromContext(ctx)
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.Data[key] = data
}

func fromContext(ctx context.Context) *Context {
	value := ctx.Value(ContextKey)
	if value != nil {
		if c, ok := value.(*Context); ok {
			return c
		}
	}
	return newContext("")
}

// WithChildContext attaches a child execution context to the one on ctx.
func WithChildContext(ctx context.Context, name string) (context.Context, *Context) {
	c := fromContext(ctx)
	child := newContext(name)
	c.mtx.Lock()
	c.Children = append(c.Children, child)
	c.mtx.Unlock()
	return context.WithValue(ctx, ContextKey, child), child
}

// StatsFromContext returns the execution context on ctx, or an empty one.
func StatsFromContext(ctx context.Context) *Context {
	return fromContext(ctx)
}

// Value returns a value from the execution context.
func (c *Context) Value(name string) float64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.Values[name]
}

// ToJSON serializes the execution context.
func (c *Context) ToJSON() ([]byte, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize exec context: %w", err)
	}
	return data, nil
}
