// Package pkg provides the core libraries for labeltower, a label placement
// engine for RPM distributions.
//
// # Overview
//
// A distribution is split into labels (base, devel, Core, Extras, ...)
// arranged in a partial order. Labeltower reads a label scheme and the
// packages and builds of a product, then places every package in exactly one
// label so that no package requires something from a label it may not
// depend on. Packages that cannot be placed are reported with the reason.
//
// # Architecture
//
// The data flow through labeltower:
//
//	label scheme (TOML)        packages + builds (JSON)
//	         ↓                           ↓
//	    [label] + [poset]            [io] + [distro]
//	         ↓                           ↓
//	              [stree] solving tree
//	                       ↓
//	              [solver] placement
//	                       ↓
//	              [result] report
//	                       ↓
//	    [render/nodelink] DOT/SVG/PDF/PNG, [store], [server]
//
// [pipeline] wires these stages together and adds caching through [cache].
//
// # Quick Start
//
//	scheme, _ := label.LoadFile("scheme.toml")
//	in, _ := io.ReadInput(f, scheme)
//	order, _ := scheme.Order(label.KindBinary)
//
//	tree, _ := stree.NewBuilder(scheme, order, stree.Options{}).Build(in.Packages)
//	s, _ := solver.New(tree, solver.Options{})
//	res, _ := s.Solve()
//
//	rep := res.Report()
//
// # Main Packages
//
// [poset] - Finite partial orders with precomputed up and down closures,
// joins, meets and cycle detection.
//
// [label] - Labels, their purposes and dispositions, and the scheme that
// derives the label order from them.
//
// [distro] - Packages, builds and their requirements.
//
// [stree] - The solving tree: packages as nodes, dependency cycles collapsed,
// cones precomputed.
//
// [solver] - The two-pass placement heuristics and user preferences.
//
// [result] - Placements, unresolved packages and the serializable report.
//
// # Infrastructure
//
// [cache] - File, Redis and null caches for reports and renderings.
//
// [store] - File and MongoDB persistence of reports by run ID.
//
// [server] - Read-only JSON API over a report and stored runs.
//
// [observability] - Hooks for pipeline, solver, cache and server events.
//
// [poset]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/poset
// [label]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/label
// [distro]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/distro
// [io]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/io
// [stree]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/stree
// [solver]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/solver
// [result]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/result
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/store
// [server]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/labeltower/pkg/observability
package pkg
