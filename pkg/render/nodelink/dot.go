package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/poset"
	"github.com/matzehuels/labeltower/pkg/render"
	"github.com/matzehuels/labeltower/pkg/result"
)

// Options configures diagram generation.
type Options struct {
	// Detailed lists package IDs in label nodes. At most MaxPackages are
	// shown per label.
	Detailed    bool
	MaxPackages int
	// Components groups labels by component.
	Components bool
	// Unresolved adds a node for the packages that were not placed.
	Unresolved bool
}

const defaultMaxPackages = 12

func header(buf *bytes.Buffer) {
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")
}

// ReportDOT converts a report to DOT. Labels required by a used label but
// holding no packages themselves are drawn dashed.
func ReportDOT(rep *result.Report, opts Options) string {
	if opts.MaxPackages <= 0 {
		opts.MaxPackages = defaultMaxPackages
	}
	var buf bytes.Buffer
	header(&buf)

	used := make(map[string]bool, len(rep.Labels))
	for _, l := range rep.Labels {
		used[l.Name] = true
	}

	byComponent := make(map[string][]result.LabelReport)
	var components []string
	for _, l := range rep.Labels {
		c := l.Component
		if !opts.Components {
			c = ""
		}
		if _, ok := byComponent[c]; !ok {
			components = append(components, c)
		}
		byComponent[c] = append(byComponent[c], l)
	}
	slices.Sort(components)

	for i, c := range components {
		indent := "  "
		if c != "" {
			fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", i)
			fmt.Fprintf(&buf, "    label=%q;\n    style=\"rounded,dashed\";\n    color=grey;\n", c)
			indent = "    "
		}
		for _, l := range byComponent[c] {
			fmt.Fprintf(&buf, "%s%q [label=%q];\n", indent, l.Name, fmtLabel(l, opts))
		}
		if c != "" {
			buf.WriteString("  }\n")
		}
	}

	var implicit []string
	for _, l := range rep.Labels {
		for _, req := range l.Requires {
			if !used[req] && !slices.Contains(implicit, req) {
				implicit = append(implicit, req)
			}
		}
	}
	slices.Sort(implicit)
	for _, name := range implicit {
		fmt.Fprintf(&buf, "  %q [style=\"rounded,dashed\", fontcolor=grey];\n", name)
	}

	if opts.Unresolved && len(rep.Unresolved) > 0 {
		names := make([]string, 0, len(rep.Unresolved))
		for _, u := range rep.Unresolved {
			names = append(names, fmt.Sprintf("%s (%s)", u.Package, u.Kind))
		}
		text := fmt.Sprintf("unresolved\n%d packages", len(names))
		if opts.Detailed {
			text = "unresolved\n" + truncate(names, opts.MaxPackages)
		}
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=mistyrose, color=firebrick];\n", "unresolved", text)
	}

	buf.WriteString("\n")
	for _, l := range rep.Labels {
		for _, req := range l.Requires {
			fmt.Fprintf(&buf, "  %q -> %q;\n", l.Name, req)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(l result.LabelReport, opts Options) string {
	if !opts.Detailed {
		return fmt.Sprintf("%s\n%d packages", l.Name, len(l.Packages))
	}
	return l.Name + "\n" + truncate(l.Packages, opts.MaxPackages)
}

func truncate(items []string, max int) string {
	if len(items) <= max {
		return strings.Join(items, "\n")
	}
	return strings.Join(items[:max], "\n") + fmt.Sprintf("\n... %d more", len(items)-max)
}

// OrderDOT draws the Hasse diagram of a label order: one arrow from every
// label to each label directly below it. Feature and API labels are drawn
// with a grey fill.
func OrderDOT(order *poset.PartialOrder[*label.Label], opts Options) string {
	var buf bytes.Buffer
	header(&buf)

	labels := order.TopDown(order.AllKeys())
	for _, l := range labels {
		attrs := []string{fmt.Sprintf("label=%q", l.Name)}
		if l.IsFeature || l.IsAPI {
			attrs = append(attrs, "fillcolor=lightgrey")
		}
		if opts.Detailed {
			attrs[0] = fmt.Sprintf("label=%q", fmt.Sprintf("%s\nrank %d", l.Name, order.Rank(l)))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", l.Name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, l := range labels {
		for _, lower := range order.TopDown(order.LowerNeighbors(l)) {
			fmt.Fprintf(&buf, "  %q -> %q;\n", l.Name, lower.Name)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz svg tag by one with a zero-origin
// viewBox and matching pixel size.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// Render produces the diagram in the given format (see [render.Formats]).
func Render(dot, format string) ([]byte, error) {
	switch format {
	case render.FormatDOT:
		return []byte(dot), nil
	case render.FormatSVG:
		return RenderSVG(dot)
	case render.FormatPDF:
		svg, err := RenderSVG(dot)
		if err != nil {
			return nil, err
		}
		return render.ToPDF(svg)
	case render.FormatPNG:
		svg, err := RenderSVG(dot)
		if err != nil {
			return nil, err
		}
		return render.ToPNG(svg, 2.0)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}
