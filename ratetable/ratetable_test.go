package ratetable_test

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/jonchang/tact/ratetable"
	"github.com/jonchang/tact/taxonomy"
	"github.com/jonchang/tact/tree"
)

func opts() ratetable.Options {
	return ratetable.Options{MinCCP: 0.8, RNG: rand.New(rand.NewPCG(1, 1))}
}

// Two genera, one a fully-sampled triplet (fit converges, "computed")
// and one a fully-sampled cherry ("cherry"); the whole backbone is
// fully sampled too, so ROOT gets a fitted, positive birth rate.
func TestBuildComputedCherryAndRoot(t *testing.T) {
	tax, err := taxonomy.BuildCSV(strings.NewReader(
		"family,genus,species\n" +
			"Fam,Gen,sp1\n" +
			"Fam,Gen,sp2\n" +
			"Fam,Gen,sp3\n" +
			"Fam,Gen2,sp4\n" +
			"Fam,Gen2,sp5\n"))
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}

	bb := tree.New("bb", 10)
	genAnc, _ := bb.AddNode(bb.Root(), 6, "")
	bb.AddNode(genAnc, 0, "sp1")
	inner, _ := bb.AddNode(genAnc, 3, "")
	bb.AddNode(inner, 0, "sp2")
	bb.AddNode(inner, 0, "sp3")
	gen2Anc, _ := bb.AddNode(bb.Root(), 4, "")
	bb.AddNode(gen2Anc, 0, "sp4")
	bb.AddNode(gen2Anc, 0, "sp5")

	idx := tree.NewIndex(bb)
	rt, err := ratetable.Build(tax, bb, idx, opts())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	root, ok := rt.Get("ROOT")
	if !ok || root.Birth <= 0 {
		t.Errorf("ROOT entry = %+v, want a positive fitted birth rate", root)
	}

	gen, ok := rt.Get("Gen")
	if !ok || gen.Source != "computed" {
		t.Errorf("Gen entry = %+v, want source \"computed\"", gen)
	}

	gen2, ok := rt.Get("Gen2")
	if !ok || gen2.Source != "cherry" {
		t.Errorf("Gen2 entry = %+v, want source \"cherry\"", gen2)
	}

	fam, ok := rt.Get("Fam")
	if !ok || fam.Source != "computed" {
		t.Errorf("Fam entry = %+v, want source \"computed\"", fam)
	}
}

// A genus whose species are entirely absent from the backbone falls
// back to its parent's rate.
func TestBuildUnsampledFallsBackToParent(t *testing.T) {
	tax, err := taxonomy.BuildCSV(strings.NewReader(
		"family,genus,species\n" +
			"Fam,Gen,sp1\n" +
			"Fam,Gen,sp2\n"))
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}

	bb := tree.New("bb", 1)
	bb.AddNode(bb.Root(), 0, "other")

	idx := tree.NewIndex(bb)
	rt, err := ratetable.Build(tax, bb, idx, opts())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	gen, ok := rt.Get("Gen")
	if !ok || gen.Source != "from parent (unsampled)" {
		t.Errorf("Gen entry = %+v, want source \"from parent (unsampled)\"", gen)
	}
}

// A genus sampled in the backbone, but whose backbone MRCA also
// contains a tip outside the genus, is rejected as non-monophyletic.
func TestBuildRejectsNonMonophyletic(t *testing.T) {
	tax, err := taxonomy.BuildCSV(strings.NewReader(
		"family,genus,species\n" +
			"Fam,Gen,sp1\n" +
			"Fam,Gen,sp4\n"))
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}

	bb := tree.New("bb", 5)
	clade1, _ := bb.AddNode(bb.Root(), 3, "")
	bb.AddNode(clade1, 0, "sp1")
	bb.AddNode(clade1, 0, "sp2")
	bb.AddNode(bb.Root(), 0, "sp4")

	idx := tree.NewIndex(bb)
	rt, err := ratetable.Build(tax, bb, idx, opts())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	gen, ok := rt.Get("Gen")
	if !ok || gen.Source != "from parent (not monophyletic)" {
		t.Errorf("Gen entry = %+v, want source \"from parent (not monophyletic)\"", gen)
	}
}

func TestBuildSingleton(t *testing.T) {
	tax, err := taxonomy.BuildCSV(strings.NewReader(
		"family,genus,species\n" +
			"Fam,Gen,sp1\n"))
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}

	bb := tree.New("bb", 1)
	bb.AddNode(bb.Root(), 0, "sp1")

	idx := tree.NewIndex(bb)
	rt, err := ratetable.Build(tax, bb, idx, opts())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	gen, ok := rt.Get("Gen")
	if !ok || gen.Source != "singleton" {
		t.Errorf("Gen entry = %+v, want source \"singleton\"", gen)
	}
}

// A sparsely sampled (but monophyletic) clade whose crown capture
// probability falls below the configured minimum is not fitted.
func TestBuildBelowMinCCP(t *testing.T) {
	var csv strings.Builder
	csv.WriteString("family,genus,species\n")
	species := []string{"sp1", "sp2", "sp3", "sp4", "sp5", "sp6", "sp7", "sp8", "sp9", "sp10"}
	for _, s := range species {
		csv.WriteString("Fam,Gen," + s + "\n")
	}
	tax, err := taxonomy.BuildCSV(strings.NewReader(csv.String()))
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}

	bb := tree.New("bb", 2)
	bb.AddNode(bb.Root(), 0, "sp1")
	bb.AddNode(bb.Root(), 0, "sp2")

	idx := tree.NewIndex(bb)
	o := opts()
	o.MinCCP = 0.8
	rt, err := ratetable.Build(tax, bb, idx, o)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	gen, ok := rt.Get("Gen")
	if !ok || gen.Source != "crown capture probability" {
		t.Errorf("Gen entry = %+v, want source \"crown capture probability\"", gen)
	}
}

func TestWriteCSV(t *testing.T) {
	tax, err := taxonomy.BuildCSV(strings.NewReader(
		"family,genus,species\n" +
			"Fam,Gen,sp1\n"))
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	bb := tree.New("bb", 1)
	bb.AddNode(bb.Root(), 0, "sp1")
	idx := tree.NewIndex(bb)
	rt, err := ratetable.Build(tax, bb, idx, opts())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var sb strings.Builder
	if err := rt.WriteCSV(&sb); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := sb.String()
	if !strings.HasPrefix(out, "taxon,birth,death,ccp,source\n") {
		t.Errorf("WriteCSV output missing expected header: %q", out)
	}
	if !strings.Contains(out, "Gen,") {
		t.Errorf("WriteCSV output missing Gen row: %q", out)
	}
}
