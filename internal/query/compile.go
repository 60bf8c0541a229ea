package query

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/gcbaptista/go-shard-query/config"
	"github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/internal/search"
)

// Builder is a query description. Rewrite returns the builder itself when
// there is nothing left to rewrite, and a new builder otherwise.
type Builder interface {
	Kind() string
	Rewrite(ctx *Context) (Builder, error)
	ToQuery(ctx *Context) (search.Query, error)
}

// ParsedQuery is the result of a compile pass.
type ParsedQuery struct {
	Query        search.Query
	NamedQueries map[string]search.Query
}

// Compile rewrites b to a fixed point and converts it to an executable query.
// Named queries, the lookup, the nested scope and the unmapped-field policy
// are reset before and after.
func (c *Context) Compile(ctx context.Context, b Builder) (parsed *ParsedQuery, err error) {
	c.reset()
	defer c.reset()
	defer func() {
		if r := recover(); r != nil {
			parsed = nil
			err = errors.NewQueryCompilationError(c.index.Name, c.opts.ShardID, fmt.Errorf("%v", r))
		}
	}()

	rewritten, err := c.Rewrite(ctx, b)
	if err != nil {
		return nil, c.compileError(err)
	}

	q, err := rewritten.ToQuery(c)
	if err != nil {
		return nil, c.compileError(err)
	}
	if q == nil {
		q = search.MatchNoDocs("No query left after rewrite.")
	}

	return &ParsedQuery{Query: q, NamedQueries: c.namedQueries.Snapshot()}, nil
}

// Rewrite applies b.Rewrite until it returns b unchanged, running queued
// async actions between steps. More than MaxRewriteSteps changes fail with a
// RewriteLoopError.
func (c *Context) Rewrite(ctx context.Context, b Builder) (Builder, error) {
	if b == nil {
		return nil, errors.NewParsingError("query", "query cannot be empty")
	}
	maxSteps := c.opts.Settings.MaxRewriteSteps
	if maxSteps <= 0 {
		maxSteps = config.DefaultMaxRewriteSteps
	}

	current := b
	for changes := 0; ; {
		next, err := current.Rewrite(c)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, fmt.Errorf("rewrite of [%s] returned no query", current.Kind())
		}
		if c.HasAsyncActions() {
			if err := c.ExecuteAsyncActions(ctx); err != nil {
				return nil, err
			}
		}
		if next == current {
			return current, nil
		}
		changes++
		if changes > maxSteps {
			return nil, errors.NewRewriteLoopError(b.Kind(), maxSteps)
		}
		current = next
	}
}

// compileError passes domain errors through and wraps everything else.
func (c *Context) compileError(err error) error {
	var (
		fieldErr   *errors.FieldResolutionError
		parseErr   *errors.ParsingError
		loopErr    *errors.RewriteLoopError
		compileErr *errors.QueryCompilationError
	)
	if stderrors.As(err, &fieldErr) || stderrors.As(err, &parseErr) ||
		stderrors.As(err, &loopErr) || stderrors.As(err, &compileErr) {
		return err
	}
	return errors.NewQueryCompilationError(c.index.Name, c.opts.ShardID, err)
}
