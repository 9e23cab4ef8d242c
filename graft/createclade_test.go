package graft_test

import (
	"math/rand/v2"
	"testing"

	"github.com/jonchang/tact/graft"
	"github.com/jonchang/tact/tree"
)

func countNodes(n *tree.Node) []*tree.Node {
	ns := []*tree.Node{n}
	for _, c := range n.Children() {
		ns = append(ns, countNodes(c)...)
	}
	return ns
}

// Ported from test_create_clade.py: a created clade has exactly one
// unlocked edge, the seed's own stem.
func TestCreateCladeLocksAllButStem(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	species := []string{"a", "b", "c", "d", "e"}
	ages := []float64{10, 8, 6, 4, 0}

	seed, err := graft.CreateClade(species, ages, rng)
	if err != nil {
		t.Fatalf("CreateClade: %v", err)
	}

	nodes := countNodes(seed)
	// The seed plus a binary crown subtree of 2n-1 nodes.
	wantNodes := 2 * len(species)
	if len(nodes) != wantNodes {
		t.Fatalf("got %d nodes, want %d", len(nodes), wantNodes)
	}

	unlocked := 0
	for _, n := range nodes {
		if !n.Locked() {
			unlocked++
		}
	}
	if unlocked != 1 {
		t.Errorf("got %d unlocked edges, want exactly 1 (the stem)", unlocked)
	}
	if seed.Locked() {
		t.Error("the seed's own edge should be the unlocked stem")
	}
}

func TestCreateCladeSingleton(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	seed, err := graft.CreateClade([]string{"only"}, []float64{3}, rng)
	if err != nil {
		t.Fatalf("CreateClade: %v", err)
	}
	if len(seed.Children()) != 1 {
		t.Fatalf("got %d children, want 1 leaf", len(seed.Children()))
	}
	if seed.Children()[0].Taxon() != "only" {
		t.Errorf("leaf taxon = %q, want %q", seed.Children()[0].Taxon(), "only")
	}
}

func TestCreateCladeRejectsEmpty(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	if _, err := graft.CreateClade(nil, nil, rng); err == nil {
		t.Fatal("expected an error for no species")
	}
}

func TestCreateCladeRejectsMismatchedAges(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 4))
	if _, err := graft.CreateClade([]string{"a", "b"}, []float64{1}, rng); err == nil {
		t.Fatal("expected an error for mismatched species/ages lengths")
	}
}
