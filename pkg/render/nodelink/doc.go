// Package nodelink draws label hierarchies and classification reports as
// Graphviz node-link diagrams.
//
// # Usage
//
// Draw the labels that received packages, with an arrow from each label to
// the labels it requires, then render to SVG:
//
//	dot := nodelink.ReportDOT(rep, nodelink.Options{Components: true})
//	svg, err := nodelink.RenderSVG(dot)
//
// [OrderDOT] draws the Hasse diagram of a label order instead, which is
// useful to check a scheme before classifying anything.
//
// # Options
//
//   - Detailed: list the packages of every label instead of their number
//   - Components: group labels into one cluster per component
//   - Unresolved: add a node listing the packages that were not placed
//
// The generated DOT uses top-to-bottom layout with rounded box nodes, so
// labels that are required by others end up at the bottom.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
