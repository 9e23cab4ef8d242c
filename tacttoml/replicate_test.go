package tacttoml_test

import (
	"math/rand/v2"
	"testing"

	"github.com/jonchang/tact/tacttoml"
	"github.com/jonchang/tact/tree"
)

func backbone(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New("backbone", 100)
	a, err := tr.AddNode(tr.Root(), 50, "")
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := tr.AddNode(a, 0, "Species a"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := tr.AddNode(a, 0, "Species b"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := tr.AddNode(tr.Root(), 0, "Species c"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	return tr
}

func TestDoTact(t *testing.T) {
	tr := backbone(t)
	item := tacttoml.Item{
		Name:    "Example",
		Missing: 2,
		Include: []tacttoml.Constraint{{MRCA: []string{"Species a", "Species b"}}},
	}
	rng := rand.New(rand.NewPCG(1, 1))
	if err := tacttoml.DoTact(tr, item, rng); err != nil {
		t.Fatalf("DoTact: %v", err)
	}
	if got, want := len(tr.TermNames()), 5; got != want {
		t.Errorf("terminal count: got %d, want %d", got, want)
	}
}

func TestDoReplicate(t *testing.T) {
	tr := backbone(t)
	items := []tacttoml.Item{{
		Name:    "Example",
		Missing: 1,
		Include: []tacttoml.Constraint{{MRCA: []string{"Species a", "Species b"}}},
	}}
	rng := rand.New(rand.NewPCG(2, 2))
	out, err := tacttoml.DoReplicate(tr, items, rng)
	if err != nil {
		t.Fatalf("DoReplicate: %v", err)
	}
	if !out.IsBinary() {
		t.Error("expected a fully resolved binary tree")
	}
}
