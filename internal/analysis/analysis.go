// Package analysis runs the reconstruction components over one contract's
// fact store, or over many contracts in parallel.
package analysis

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tacflow/internal/binding"
	"tacflow/internal/blocks"
	"tacflow/internal/classify"
	"tacflow/internal/diag"
	"tacflow/internal/facts"
	"tacflow/internal/globalcfg"
	"tacflow/internal/member"
)

// Input is one contract to analyse.
type Input struct {
	Store     *facts.Store
	LoadDiags *diag.Diags // rows the loader skipped; may be nil
}

// Result is everything derived for one contract. It is published only after
// every component finished and is read-only afterwards.
type Result struct {
	Name  string
	Stats facts.Stats
	Store *facts.Store
	Index *facts.Index

	Boundaries *blocks.Boundaries
	Ownership  *member.Ownership
	Bindings   *binding.Bindings
	Graph      *globalcfg.Graph
	Public     *classify.Public

	Exits     []facts.Block
	Entry     facts.Block
	Terminals []facts.Block

	Diags    *diag.Diags
	Degraded bool
	Dropped  int // diagnostics cut by Options.MaxDiags
}

// IsExit reports whether b is a function exit.
func (r *Result) IsExit(b facts.Block) bool { return containsSorted(r.Exits, b) }

// IsValidTerminal reports whether b is a valid global terminal block.
func (r *Result) IsValidTerminal(b facts.Block) bool { return containsSorted(r.Terminals, b) }

// Run derives every output relation for in.Store. The components read the
// same frozen index and run concurrently; the terminal checks that need
// both block tails and the global graph run once those are done. On
// cancellation or a fatal condition no result is returned.
func Run(ctx context.Context, in Input, opts diag.Options, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		log = discard()
	}
	s := in.Store
	if s == nil {
		return nil, fmt.Errorf("analysis: nil store")
	}
	stats := s.Stats()
	log = log.WithField("contract", s.Name)

	if opts.MaxStatements > 0 && stats.Statements > opts.MaxStatements {
		return nil, fmt.Errorf("analysis: %s: %d statements: %w", s.Name, stats.Statements, diag.ErrTooLarge)
	}
	if len(s.InFunction) == 0 && stats.Statements > 0 {
		return nil, fmt.Errorf("analysis: %s: %w", s.Name, diag.ErrNoMembership)
	}

	ix := facts.NewIndex(s)
	r := &Result{
		Name:  s.Name,
		Stats: stats,
		Store: s,
		Index: ix,
		Entry: facts.GlobalEntryBlock,
	}

	var (
		blockDiags, memberDiags, bindDiags, publicDiags *diag.Diags
	)
	g, gctx := errgroup.WithContext(ctx)
	step := func(name string, fn func()) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			fn()
			log.WithFields(logrus.Fields{"component": name, "elapsed": time.Since(start)}).Debug("component done")
			return nil
		})
	}
	step("blocks", func() { r.Boundaries, blockDiags = blocks.Resolve(ix) })
	step("member", func() { r.Ownership, memberDiags = member.Resolve(ix) })
	step("binding", func() { r.Bindings, bindDiags = binding.Bind(ix) })
	step("globalcfg", func() { r.Graph = globalcfg.Build(ix) })
	step("exits", func() { r.Exits = classify.FunctionExits(ix) })
	step("public", func() { r.Public, publicDiags = classify.PublicFunctions(ix) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.Terminals = classify.ValidTerminals(ix, r.Boundaries)
	termDiags := classify.CheckTerminals(ix, r.Boundaries, r.Graph)

	r.Diags = &diag.Diags{}
	for _, d := range []*diag.Diags{in.LoadDiags, blockDiags, memberDiags, bindDiags, publicDiags, termDiags} {
		r.Diags.Merge(d)
	}
	r.Diags.Sort()
	if opts.Mode == diag.ModeStrict {
		if err := r.Diags.StrictErr(); err != nil {
			return nil, fmt.Errorf("analysis: %s: %w", s.Name, err)
		}
	}
	r.Degraded = r.Diags.Degraded()
	r.Dropped = r.Diags.Truncate(opts.MaxDiags)

	entry := log.WithFields(logrus.Fields{
		"blocks":      stats.Blocks,
		"statements":  stats.Statements,
		"edges":       len(r.Graph.Edges),
		"diagnostics": r.Diags.Len(),
	})
	if r.Degraded {
		entry.Warn("analysis degraded")
	} else {
		entry.Info("analysis done")
	}
	return r, nil
}

func discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func containsSorted(bs []facts.Block, b facts.Block) bool {
	_, ok := slices.BinarySearch(bs, b)
	return ok
}
