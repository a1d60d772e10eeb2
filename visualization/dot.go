package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/anggasct/crossroads"
	"github.com/samber/lo"
)

// DOTGenerator generates Graphviz DOT format representations of the route table
type DOTGenerator struct {
	options DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowPaths      bool
	ShowQuadrants  bool
	RankDirection  string // "TB", "LR", "BT", "RL"
	ApproachShape  string
	QuadrantShape  string
	RightTurnColor string
	StraightColor  string
	LeftTurnColor  string
	// Entries limits the routes drawn to those entering from these approaches. Empty means all.
	Entries []crossroads.Approach
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowPaths:      true,
		ShowQuadrants:  false,
		RankDirection:  "LR",
		ApproachShape:  "box",
		QuadrantShape:  "circle",
		RightTurnColor: "darkgreen",
		StraightColor:  "blue",
		LeftTurnColor:  "darkorange",
	}
}

// NewDOTGenerator creates a new DOT generator
func NewDOTGenerator(options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator{
		options: opts,
	}
}

// route is one valid entry/exit pair and its path
type route struct {
	in, out crossroads.Approach
	path    crossroads.Path
}

func (r route) name() string {
	return fmt.Sprintf("%s-%s", r.in, r.out)
}

// routes returns every valid route in approach order, filtered by Entries
func (g *DOTGenerator) routes() []route {
	var routes []route
	for _, in := range crossroads.Approaches() {
		if len(g.options.Entries) > 0 && !lo.Contains(g.options.Entries, in) {
			continue
		}
		for _, out := range crossroads.Approaches() {
			path, err := crossroads.ComputePath(in, out)
			if err != nil {
				continue
			}
			routes = append(routes, route{in: in, out: out, path: path})
		}
	}
	return routes
}

// turnColor colors a route by the number of quadrants it crosses
func (g *DOTGenerator) turnColor(path crossroads.Path) string {
	switch len(path) {
	case 1:
		return g.options.RightTurnColor
	case 2:
		return g.options.StraightColor
	default:
		return g.options.LeftTurnColor
	}
}

// Generate creates a DOT representation of the route table
func (g *DOTGenerator) Generate() (string, error) {
	var dot strings.Builder

	dot.WriteString("digraph Intersection {\n")
	dot.WriteString(fmt.Sprintf("  rankdir=%s;\n", g.options.RankDirection))
	dot.WriteString(fmt.Sprintf("  node [shape=%s];\n", g.options.ApproachShape))
	dot.WriteString("  edge [fontsize=10];\n\n")

	if err := g.generateNodes(&dot); err != nil {
		return "", fmt.Errorf("failed to generate nodes: %w", err)
	}

	if err := g.generateRoutes(&dot); err != nil {
		return "", fmt.Errorf("failed to generate routes: %w", err)
	}

	dot.WriteString("}\n")

	return dot.String(), nil
}

// generateNodes generates DOT nodes for approaches and, optionally, quadrants
func (g *DOTGenerator) generateNodes(dot *strings.Builder) error {
	dot.WriteString("  // Approaches\n")
	for _, a := range crossroads.Approaches() {
		fillColor := "lightblue"
		if len(g.options.Entries) > 0 && lo.Contains(g.options.Entries, a) {
			fillColor = "lightgreen"
		}
		dot.WriteString(fmt.Sprintf("  \"%s\" [style=\"filled\" fillcolor=%s label=\"%s\\n(%d)\"];\n",
			a, fillColor, a, int(a)))
	}

	if !g.options.ShowQuadrants {
		return nil
	}

	dot.WriteString("  // Quadrants\n")
	for _, q := range crossroads.Quadrants() {
		dot.WriteString(fmt.Sprintf("  \"%s\" [shape=%s style=\"filled\" fillcolor=lightyellow];\n",
			q, g.options.QuadrantShape))
	}
	return nil
}

// generateRoutes generates DOT edges for every route
func (g *DOTGenerator) generateRoutes(dot *strings.Builder) error {
	dot.WriteString("  // Routes\n")

	for _, r := range g.routes() {
		color := g.turnColor(r.path)
		if !g.options.ShowQuadrants {
			label := ""
			if g.options.ShowPaths {
				label = fmt.Sprintf(" label=\"%s\"", strings.Trim(r.path.String(), "[]"))
			}
			dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=%s%s];\n", r.in, r.out, color, label))
			continue
		}

		// chain through the quadrants the route occupies
		hops := append([]string{r.in.String()}, lo.Map(r.path, func(q crossroads.Quadrant, _ int) string {
			return q.String()
		})...)
		hops = append(hops, r.out.String())
		for i := 0; i+1 < len(hops); i++ {
			dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=%s tooltip=\"%s\"];\n",
				hops[i], hops[i+1], color, r.name()))
		}
	}

	return nil
}

// GenerateConflicts creates an undirected DOT graph with one node per route
// and an edge between every two routes whose paths share a quadrant. Routes
// that share an entry lane are not joined since they never cross at the same time.
func (g *DOTGenerator) GenerateConflicts() (string, error) {
	var dot strings.Builder
	routes := g.routes()

	dot.WriteString("graph Conflicts {\n")
	dot.WriteString(fmt.Sprintf("  node [shape=%s];\n\n", g.options.ApproachShape))

	for _, r := range routes {
		dot.WriteString(fmt.Sprintf("  \"%s\" [color=%s label=\"%s\\n%s\"];\n",
			r.name(), g.turnColor(r.path), r.name(), r.path))
	}

	for i, a := range routes {
		for _, b := range routes[i+1:] {
			if a.in == b.in || !a.path.Overlaps(b.path) {
				continue
			}
			dot.WriteString(fmt.Sprintf("  \"%s\" -- \"%s\";\n", a.name(), b.name()))
		}
	}

	dot.WriteString("}\n")
	return dot.String(), nil
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// SVGGenerator generates SVG representations by calling Graphviz
type SVGGenerator struct {
	dotGenerator *DOTGenerator
}

// NewSVGGenerator creates a new SVG generator
func NewSVGGenerator(options ...DOTOptions) *SVGGenerator {
	return &SVGGenerator{
		dotGenerator: NewDOTGenerator(options...),
	}
}

// Generate creates an SVG representation of the route table
func (g *SVGGenerator) Generate() (string, error) {
	dotContent, err := g.dotGenerator.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}

// GenerateSVG creates an SVG representation of the route table
func (g *DOTGenerator) GenerateSVG() (string, error) {
	svgGen := &SVGGenerator{dotGenerator: g}
	return svgGen.Generate()
}
