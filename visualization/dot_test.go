package visualization_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anggasct/crossroads"
	"github.com/anggasct/crossroads/visualization"
)

func TestDOTGeneration(t *testing.T) {
	generator := visualization.NewDOTGenerator()

	dotContent, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if !strings.Contains(dotContent, "digraph Intersection") {
		t.Error("DOT content should contain graph declaration")
	}

	for _, a := range crossroads.Approaches() {
		if !strings.Contains(dotContent, "\""+a.String()+"\" [") {
			t.Errorf("DOT content should contain %s approach", a)
		}
	}

	if !strings.Contains(dotContent, "\"north\" -> \"south\" [color=blue label=\"q2 q3\"]") {
		t.Error("DOT content should contain the north to south route")
	}

	if !strings.Contains(dotContent, "\"west\" -> \"south\" [color=darkgreen label=\"q3\"]") {
		t.Error("DOT content should color right turns")
	}

	if strings.Contains(dotContent, "\"east\" -> \"east\"") {
		t.Error("DOT content should not contain u-turns")
	}

	if got := strings.Count(dotContent, " -> "); got != 12 {
		t.Errorf("Expected 12 routes, got %d", got)
	}

	t.Logf("Generated DOT content:\n%s", dotContent)
}

func TestDOTGenerationWithQuadrants(t *testing.T) {
	options := visualization.DefaultDOTOptions()
	options.ShowQuadrants = true
	options.Entries = []crossroads.Approach{crossroads.North}
	generator := visualization.NewDOTGenerator(options)

	dotContent, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if !strings.Contains(dotContent, "\"q1\" [shape=circle") {
		t.Error("DOT content should contain quadrant nodes")
	}

	// north-east crosses q2, q3 and q4
	for _, hop := range []string{"\"north\" -> \"q2\"", "\"q2\" -> \"q3\"", "\"q3\" -> \"q4\"", "\"q4\" -> \"east\""} {
		if !strings.Contains(dotContent, hop) {
			t.Errorf("DOT content should contain hop %s", hop)
		}
	}

	if strings.Contains(dotContent, "\"south\" -> ") {
		t.Error("DOT content should only contain routes entering from north")
	}

	if !strings.Contains(dotContent, "fillcolor=lightgreen") {
		t.Error("DOT content should highlight the selected entry")
	}
}

func TestConflictGeneration(t *testing.T) {
	generator := visualization.NewDOTGenerator()

	dotContent, err := generator.GenerateConflicts()
	if err != nil {
		t.Fatalf("Failed to generate conflicts: %v", err)
	}

	if !strings.Contains(dotContent, "graph Conflicts") {
		t.Error("DOT content should contain graph declaration")
	}

	if !strings.Contains(dotContent, "\"north-south\" -- \"east-west\"") {
		t.Error("Straight routes sharing q2 should conflict")
	}

	if strings.Contains(dotContent, "\"north-west\" -- \"south-east\"") {
		t.Error("Disjoint right turns should not conflict")
	}

	if strings.Contains(dotContent, "\"north-south\" -- \"north-east\"") {
		t.Error("Routes from the same lane should not be joined")
	}
}

func TestDOTGenerator_GenerateToFile(t *testing.T) {
	generator := visualization.NewDOTGenerator()

	filename := filepath.Join(t.TempDir(), "routes.dot")
	if err := generator.GenerateToFile(filename); err != nil {
		t.Fatalf("Failed to generate DOT file: %v", err)
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Failed to read DOT file: %v", err)
	}
	if !strings.HasPrefix(string(content), "digraph Intersection") {
		t.Error("DOT file should start with the graph declaration")
	}
}

func TestSVGGenerator(t *testing.T) {
	if _, err := exec.LookPath("dot"); err != nil {
		t.Skip("Graphviz not installed")
	}

	generator := visualization.NewSVGGenerator()

	svgContent, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate SVG: %v", err)
	}

	if !strings.Contains(svgContent, "<svg") {
		t.Error("Content should be valid SVG")
	}
}
