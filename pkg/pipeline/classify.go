package pipeline

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/matzehuels/labeltower/pkg/errors"
	lio "github.com/matzehuels/labeltower/pkg/io"
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/observability"
	"github.com/matzehuels/labeltower/pkg/result"
	"github.com/matzehuels/labeltower/pkg/solver"
	"github.com/matzehuels/labeltower/pkg/stree"
)

// LoadScheme reads and finalizes the label scheme at path.
func LoadScheme(ctx context.Context, path string) (*label.Scheme, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, "scheme", path)
	start := time.Now()

	scheme, err := label.LoadFile(path)
	count := 0
	if scheme != nil {
		count = len(scheme.Labels())
	}
	hooks.OnLoadComplete(ctx, "scheme", path, count, time.Since(start), err)
	return scheme, err
}

// readInput reads the raw input file. The bytes are hashed for the report
// cache before they are parsed.
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read input %s", path)
	}
	return data, nil
}

// parseInput decodes input data against scheme.
func parseInput(ctx context.Context, path string, data []byte, scheme *label.Scheme) (*lio.Input, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, "input", path)
	start := time.Now()

	in, err := lio.ReadInput(bytes.NewReader(data), scheme)
	count := 0
	if in != nil {
		count = len(in.Packages)
	}
	hooks.OnLoadComplete(ctx, "input", path, count, time.Since(start), err)
	return in, err
}

// Classify builds the solving tree for the input and solves it.
func Classify(ctx context.Context, scheme *label.Scheme, in *lio.Input, opts Options) (*result.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()
	hooks.OnSolveStart(ctx, len(in.Packages))
	start := time.Now()

	res, err := classify(scheme, in, opts)
	solved, unresolved := 0, 0
	if res != nil {
		st := res.Stats()
		solved, unresolved = st.Solved, st.Unresolved
	}
	hooks.OnSolveComplete(ctx, solved, unresolved, time.Since(start), err)
	return res, err
}

func classify(scheme *label.Scheme, in *lio.Input, opts Options) (*result.Result, error) {
	order, err := scheme.Order(label.KindBinary)
	if err != nil {
		return nil, err
	}

	tree, err := stree.NewBuilder(scheme, order, stree.Options{
		Logger:           opts.Logger,
		Trace:            opts.Trace,
		StrictComponents: opts.StrictComponents,
		AllowSplit:       opts.AllowSplit,
	}).Build(in.Packages)
	if err != nil {
		return nil, err
	}

	s, err := solver.New(tree, solver.Options{Logger: opts.Logger})
	if err != nil {
		return nil, err
	}
	for _, p := range opts.Preferences {
		if err := s.DefinePreference(p.Preferred, p.Others...); err != nil {
			return nil, err
		}
	}
	return s.Solve()
}
