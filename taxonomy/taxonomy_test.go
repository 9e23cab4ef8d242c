package taxonomy_test

import (
	"strings"
	"testing"

	"github.com/jonchang/tact/taxonomy"
)

const ranksCSV = `family,genus,species
Cichlidae,Haplochromis,Haplochromis burtoni
Cichlidae,Haplochromis,Haplochromis sp1
Cichlidae,Tropheus,Tropheus moorii
Pomacentridae,Tropheus,Tropheus decoy
`

func TestBuildCSV(t *testing.T) {
	tr, err := taxonomy.BuildCSV(strings.NewReader(ranksCSV))
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	if got := tr.Ranks(); len(got) != 3 || got[2] != "species" {
		t.Fatalf("Ranks() = %v, want [family genus species]", got)
	}
	leaves := tr.Leaves(tr.Root())
	if len(leaves) != 4 {
		t.Fatalf("got %d leaves, want 4", len(leaves))
	}
}

// Cichlidae's genus "Tropheus" and Pomacentridae's genus "Tropheus" are
// the same label under different parents, so the second occurrence
// must be mangled.
func TestBuildCSVMangleDuplicateLabel(t *testing.T) {
	tr, err := taxonomy.BuildCSV(strings.NewReader(ranksCSV))
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	var labels []string
	for _, n := range tr.PreOrder() {
		labels = append(labels, n.Label)
	}
	found := false
	for _, l := range labels {
		if strings.Contains(l, "__genus__") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a mangled duplicate label among %v", labels)
	}
}

func TestBuildCSVRejectsEmptyCell(t *testing.T) {
	csv := "family,genus,species\nCichlidae,,Haplochromis burtoni\n"
	if _, err := taxonomy.BuildCSV(strings.NewReader(csv)); err == nil {
		t.Fatal("expected an error for an empty cell")
	}
}

func TestBuildCSVRejectsDuplicateColumn(t *testing.T) {
	csv := "family,family,species\nCichlidae,Cichlidae,Haplochromis burtoni\n"
	if _, err := taxonomy.BuildCSV(strings.NewReader(csv)); err == nil {
		t.Fatal("expected an error for a duplicate column name")
	}
}

func TestPreOrderPostOrderExcludeRoot(t *testing.T) {
	tr, err := taxonomy.BuildCSV(strings.NewReader(ranksCSV))
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	pre := tr.PreOrder()
	post := tr.PostOrder()
	if len(pre) != len(post) {
		t.Fatalf("PreOrder has %d nodes, PostOrder has %d", len(pre), len(post))
	}
	for _, n := range pre {
		if n == tr.Root() {
			t.Error("PreOrder should not include the synthetic root")
		}
	}
}

func TestDepth(t *testing.T) {
	tr, err := taxonomy.BuildCSV(strings.NewReader(ranksCSV))
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	for _, n := range tr.PreOrder() {
		if n.IsSpecies && tr.Depth(n) != 2 {
			t.Errorf("species %q at depth %d, want 2", n.Label, tr.Depth(n))
		}
	}
}

func TestWriteNewick(t *testing.T) {
	tr, err := taxonomy.BuildCSV(strings.NewReader(ranksCSV))
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	var sb strings.Builder
	if err := taxonomy.WriteNewick(&sb, tr); err != nil {
		t.Fatalf("WriteNewick: %v", err)
	}
	out := sb.String()
	if !strings.HasSuffix(strings.TrimSpace(out), ";") {
		t.Errorf("newick output %q does not end with ';'", out)
	}
	if !strings.Contains(out, "Cichlidae") {
		t.Errorf("newick output %q missing a rank label", out)
	}
}
