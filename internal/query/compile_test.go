package query

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/internal/jobs"
	"github.com/gcbaptista/go-shard-query/internal/search"
	"github.com/gcbaptista/go-shard-query/model"
)

// stepsBuilder changes remaining more times before it reaches its fixed point.
type stepsBuilder struct {
	remaining int
	calls     *int
}

func (b *stepsBuilder) Kind() string { return "steps" }

func (b *stepsBuilder) Rewrite(*Context) (Builder, error) {
	*b.calls++
	if b.remaining == 0 {
		return b, nil
	}
	return &stepsBuilder{remaining: b.remaining - 1, calls: b.calls}, nil
}

func (b *stepsBuilder) ToQuery(*Context) (search.Query, error) {
	return search.MatchAllDocsQuery{}, nil
}

// funcBuilder delegates to functions so tests can inject behavior.
type funcBuilder struct {
	rewrite func(ctx *Context) error
	toQuery func(ctx *Context) (search.Query, error)
}

func (b *funcBuilder) Kind() string { return "func" }

func (b *funcBuilder) Rewrite(ctx *Context) (Builder, error) {
	if b.rewrite != nil {
		if err := b.rewrite(ctx); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *funcBuilder) ToQuery(ctx *Context) (search.Query, error) {
	if b.toQuery == nil {
		return nil, nil
	}
	return b.toQuery(ctx)
}

func TestCompileFixedPointTakesOneStep(t *testing.T) {
	ctx, _ := newTestContext(t)
	calls := 0

	parsed, err := ctx.Compile(context.Background(), &stepsBuilder{calls: &calls})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, search.MatchAllDocsQuery{}, parsed.Query)
	assert.True(t, ctx.IsCacheable())
}

func TestCompileRewriteBudget(t *testing.T) {
	ctx, shard := newTestContext(t)
	shard.Settings.MaxRewriteSteps = 4

	t.Run("changes within the budget", func(t *testing.T) {
		calls := 0
		_, err := ctx.Compile(context.Background(), &stepsBuilder{remaining: 4, calls: &calls})
		require.NoError(t, err)
		assert.Equal(t, 5, calls)
	})

	t.Run("changes beyond the budget", func(t *testing.T) {
		calls := 0
		_, err := ctx.Compile(context.Background(), &stepsBuilder{remaining: 5, calls: &calls})
		require.Error(t, err)
		var loopErr *errors.RewriteLoopError
		require.True(t, stderrors.As(err, &loopErr), "rewrite loops are not wrapped")
		assert.Equal(t, 4, loopErr.MaxSteps)
		assert.ErrorIs(t, err, errors.ErrRewriteLoop)
		assert.Equal(t, 5, calls)
	})
}

func TestCompileNilQueryBecomesMatchNone(t *testing.T) {
	ctx, _ := newTestContext(t)
	parsed, err := ctx.Compile(context.Background(), &funcBuilder{})
	require.NoError(t, err)
	assert.Equal(t, search.MatchNoDocs("No query left after rewrite."), parsed.Query)
}

func TestCompileEmptyQuery(t *testing.T) {
	ctx, _ := newTestContext(t)
	_, err := ctx.Compile(context.Background(), nil)
	assert.ErrorIs(t, err, errors.ErrParsing)
}

func TestCompileWithClientIsNotCacheable(t *testing.T) {
	ctx, _ := newTestContext(t)
	b := &funcBuilder{
		rewrite: func(ctx *Context) error {
			_, err := ctx.Client()
			return err
		},
		toQuery: func(*Context) (search.Query, error) { return search.MatchAllDocsQuery{}, nil },
	}

	parsed, err := ctx.Compile(context.Background(), b)
	require.NoError(t, err)
	assert.NotNil(t, parsed.Query)
	assert.False(t, ctx.IsCacheable())
}

func TestCompileErrorPropagation(t *testing.T) {
	t.Run("field resolution errors pass through", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		_, err := ctx.Compile(context.Background(), strictly(&TermBuilder{Field: "missing", Value: "x"}))
		require.Error(t, err)
		var fieldErr *errors.FieldResolutionError
		require.True(t, stderrors.As(err, &fieldErr))
		assert.NotErrorIs(t, err, errors.ErrQueryCompilation)
	})

	t.Run("parsing errors pass through", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		_, err := ctx.Compile(context.Background(), &NestedBuilder{Path: "studio", Query: &MatchAllBuilder{}})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrParsing)
		assert.NotErrorIs(t, err, errors.ErrQueryCompilation)
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		cause := stderrors.New("disk on fire")
		_, err := ctx.Compile(context.Background(), &funcBuilder{
			toQuery: func(*Context) (search.Query, error) { return nil, cause },
		})
		require.Error(t, err)
		var compileErr *errors.QueryCompilationError
		require.True(t, stderrors.As(err, &compileErr))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "[movies][0] failed to create query: disk on fire", err.Error())
	})

	t.Run("frozen violations are wrapped but still recognizable", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		ctx.Freeze()
		_, err := ctx.Compile(context.Background(), &RangeBuilder{Field: "released", GTE: "now-1d/d"})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrQueryCompilation)
		assert.ErrorIs(t, err, errors.ErrFrozenContext)
		assert.False(t, ctx.IsCacheable())
	})

	t.Run("panics are wrapped", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		_, err := ctx.Compile(context.Background(), &funcBuilder{
			toQuery: func(*Context) (search.Query, error) { panic("unexpected builder state") },
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrQueryCompilation)
		assert.Contains(t, err.Error(), "unexpected builder state")
	})
}

func TestCompileResetsStateOnFailure(t *testing.T) {
	ctx, _ := newTestContext(t)
	var lookupDuringCompile interface{}
	b := &funcBuilder{
		rewrite: func(ctx *Context) error {
			ctx.SetAllowUnmappedFields(false)
			return nil
		},
		toQuery: func(ctx *Context) (search.Query, error) {
			ctx.AddNamedQuery("half-built", search.MatchAllDocsQuery{})
			ctx.NestedScope().NextLevel(ctx.ObjectMapper("cast"))
			lookupDuringCompile = ctx.Lookup()
			_, err := ctx.FieldType("missing")
			return nil, err
		},
	}

	_, err := ctx.Compile(context.Background(), b)
	require.Error(t, err)
	assert.Empty(t, ctx.NamedQueries())
	assert.Equal(t, 0, ctx.NestedScope().Depth())
	assert.NotSame(t, lookupDuringCompile, ctx.Lookup())
}

// strictBuilder disallows unmapped fields for the pass it is compiled in.
type strictBuilder struct {
	inner Builder
}

func strictly(inner Builder) *strictBuilder { return &strictBuilder{inner: inner} }

func (b *strictBuilder) Kind() string { return "strict" }

func (b *strictBuilder) Rewrite(ctx *Context) (Builder, error) {
	ctx.SetAllowUnmappedFields(false)
	inner, err := b.inner.Rewrite(ctx)
	if err != nil {
		return nil, err
	}
	if inner == b.inner {
		return b, nil
	}
	return strictly(inner), nil
}

func (b *strictBuilder) ToQuery(ctx *Context) (search.Query, error) {
	return b.inner.ToQuery(ctx)
}

func TestCompileRestoresUnmappedPolicy(t *testing.T) {
	t.Run("after a successful compile", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		_, err := ctx.Compile(context.Background(), strictly(&MatchAllBuilder{}))
		require.NoError(t, err)

		ft, err := ctx.FieldType("missing")
		require.NoError(t, err)
		assert.Nil(t, ft)

		parsed, err := ctx.Compile(context.Background(), &TermBuilder{Field: "missing", Value: "x"})
		require.NoError(t, err)
		assert.Equal(t, `MatchNoDocsQuery("unmapped field [missing]")`, parsed.Query.String())
	})

	t.Run("after a failed compile", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		_, err := ctx.Compile(context.Background(), strictly(&TermBuilder{Field: "missing", Value: "x"}))
		require.Error(t, err)

		ft, err := ctx.FieldType("missing")
		require.NoError(t, err)
		assert.Nil(t, ft)
	})

	t.Run("index default applies to every pass", func(t *testing.T) {
		ctx, shard := newTestContext(t)
		disallow := false
		shard.Settings.AllowUnmappedFields = &disallow
		ctx.SetAllowUnmappedFields(true)

		_, err := ctx.Compile(context.Background(), &TermBuilder{Field: "missing", Value: "x"})
		var fieldErr *errors.FieldResolutionError
		assert.True(t, stderrors.As(err, &fieldErr))
	})
}

func TestCompileNamedQueries(t *testing.T) {
	ctx, _ := newTestContext(t)

	first, err := ctx.Compile(context.Background(), &BoolBuilder{
		Should: []Builder{
			&TermBuilder{Field: "genre", Value: "scifi", Name: "scifi"},
			&TermBuilder{Field: "genre", Value: "horror", Name: "horror"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, first.NamedQueries, 2)
	assert.Equal(t, "genre:scifi", first.NamedQueries["scifi"].String())
	assert.Empty(t, ctx.NamedQueries(), "compile leaves the registry empty")

	second, err := ctx.Compile(context.Background(), &TermBuilder{Field: "genre", Value: "crime", Name: "crime"})
	require.NoError(t, err)
	assert.Len(t, first.NamedQueries, 2, "earlier snapshots are detached")
	assert.Len(t, second.NamedQueries, 1)
}

func TestCompileTermsLookup(t *testing.T) {
	t.Run("inline runner", func(t *testing.T) {
		ctx, shard := newTestContext(t)
		client := ctx.opts.Client.(*fakeClient)

		parsed, err := ctx.Compile(context.Background(), &TermsBuilder{
			Field:  "genre",
			Lookup: &TermsLookup{Index: "watchlists", ID: "alice", Path: "genres"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, client.Calls())
		assert.False(t, ctx.IsCacheable())

		docs, err := parsed.Query.Execute(shard.Segment)
		require.NoError(t, err)
		assert.Equal(t, []string{"m3", "m4"}, shard.ExternalIDs(t, docs))
	})

	t.Run("job manager runner", func(t *testing.T) {
		manager := jobs.NewManager(2, nil)
		manager.Start()
		defer manager.Stop()
		ctx, shard := newTestContext(t, func(o *Options) { o.Actions = manager })

		parsed, err := ctx.Compile(context.Background(), &TermsBuilder{
			Field:  "genre",
			Lookup: &TermsLookup{Index: "watchlists", ID: "alice", Path: "genres"},
		})
		require.NoError(t, err)
		docs, err := parsed.Query.Execute(shard.Segment)
		require.NoError(t, err)
		assert.Equal(t, []string{"m3", "m4"}, shard.ExternalIDs(t, docs))

		actions := manager.List("movies", nil)
		require.Len(t, actions, 1)
		assert.Equal(t, model.ActionTypeTermsLookup, actions[0].Type)
		assert.Equal(t, model.ActionStatusCompleted, actions[0].Status)
		assert.Equal(t, "alice", actions[0].Metadata["id"])
	})

	t.Run("missing lookup document matches nothing", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		parsed, err := ctx.Compile(context.Background(), &TermsBuilder{
			Field:  "genre",
			Lookup: &TermsLookup{Index: "watchlists", ID: "bob", Path: "genres"},
		})
		require.NoError(t, err)
		assert.IsType(t, &search.MatchNoDocsQuery{}, parsed.Query)
	})

	t.Run("frozen context refuses the lookup", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		ctx.Freeze()
		_, err := ctx.Compile(context.Background(), &TermsBuilder{
			Field:  "genre",
			Lookup: &TermsLookup{Index: "watchlists", ID: "alice", Path: "genres"},
		})
		assert.ErrorIs(t, err, errors.ErrFrozenContext)
		assert.Equal(t, 0, ctx.opts.Client.(*fakeClient).Calls())
	})
}
