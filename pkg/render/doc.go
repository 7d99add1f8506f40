// Package render turns classification results into pictures.
//
// The [nodelink] subpackage draws label hierarchies and classification
// reports as Graphviz diagrams. This package converts the resulting SVG to
// other formats:
//
//	svg, err := nodelink.RenderSVG(dot)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// Conversion shells out to rsvg-convert (from librsvg).
//
// [nodelink]: github.com/matzehuels/labeltower/pkg/render/nodelink
package render
