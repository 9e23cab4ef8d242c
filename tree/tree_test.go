package tree_test

import (
	"errors"
	"testing"

	"github.com/jonchang/tact/tree"
)

func cherry(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New("backbone", 10)
	a, err := tr.AddNode(tr.Root(), 4, "")
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := tr.AddNode(a, 0, "a1"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := tr.AddNode(a, 0, "a2"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := tr.AddNode(tr.Root(), 0, "b"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	return tr
}

func TestAddNodeAndTermNames(t *testing.T) {
	tr := cherry(t)
	if !tr.IsBinary() {
		t.Error("expected a binary tree")
	}
	names := tr.TermNames()
	if len(names) != 3 {
		t.Fatalf("got %d terminals, want 3", len(names))
	}
}

func TestMRCA(t *testing.T) {
	tr := cherry(t)
	m := tr.MRCA("a1", "a2")
	if m == nil || m.Age() != 4 {
		t.Fatalf("MRCA(a1, a2) = %v, want the age-4 node", m)
	}
	if tr.MRCA("a1", "b") != tr.Root() {
		t.Error("MRCA(a1, b) should be the root")
	}
}

func TestValidateRejectsSingleChild(t *testing.T) {
	tr := tree.New("bad", 10)
	a, _ := tr.AddNode(tr.Root(), 4, "")
	tr.AddNode(a, 0, "a1")
	tr.AddNode(a, 1, "a2")
	if err := tr.Validate(); err == nil {
		t.Fatal("expected an error for a root with a single child")
	}
}

func TestRenameRejectsDuplicate(t *testing.T) {
	tr := cherry(t)
	n := tr.TaxNode("a1")
	if err := tr.Rename(n, "b"); err == nil {
		t.Fatal("expected an error renaming to a name already in use")
	}
	if err := tr.Rename(n, "a1-renamed"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if tr.TaxNode("a1-renamed") != n {
		t.Error("renamed node not found under its new name")
	}
	if tr.TaxNode("a1") != nil {
		t.Error("old name should no longer resolve")
	}
}

func TestMinGraftableAgeSingleInterval(t *testing.T) {
	tr := tree.New("root", 100)
	l, _ := tr.AddNode(tr.Root(), 60, "")
	tr.AddNode(tr.Root(), 50, "m")
	tr.AddNode(l, 0, "la")
	tr.AddNode(l, 0, "lb")

	tr.Lock(tr.Root(), true)
	tr.Unlock(l, true)

	age, err := tr.MinGraftableAge(tr.Root())
	if err != nil {
		t.Fatalf("MinGraftableAge: %v", err)
	}
	// Unlocked edges: root->l [60, 100], l->la and l->lb [0, 60].
	if age != 0 {
		t.Errorf("MinGraftableAge = %v, want 0", age)
	}
}

// Ported from test_disjoint.py: unlocking two clades that do not share
// an age boundary leaves a graftable region that is not a single
// contiguous interval.
func TestMinGraftableAgeRejectsDisjointInterval(t *testing.T) {
	tr := tree.New("root", 100)
	l, _ := tr.AddNode(tr.Root(), 60, "")
	m, _ := tr.AddNode(tr.Root(), 50, "")
	la, _ := tr.AddNode(l, 0, "la")
	lb, _ := tr.AddNode(l, 0, "lb")
	ma, _ := tr.AddNode(m, 45, "")
	ma1, _ := tr.AddNode(ma, 0, "ma1")
	ma2, _ := tr.AddNode(ma, 0, "ma2")

	tr.Lock(tr.Root(), true)
	tr.Unlock(l, true)
	tr.Lock(la, true)
	tr.Lock(lb, true)
	tr.Unlock(ma, true)
	tr.Lock(ma1, true)
	tr.Lock(ma2, true)

	// Unlocked edges remaining: root->l [60, 100] and m->ma [45, 50].
	_, err := tr.MinGraftableAge(tr.Root())
	if !errors.Is(err, tree.ErrDisjointConstraint) {
		t.Fatalf("MinGraftableAge: got %v, want ErrDisjointConstraint", err)
	}
}

func TestClonePreservesTopology(t *testing.T) {
	tr := cherry(t)
	c := tr.Clone()
	if len(c.TermNames()) != len(tr.TermNames()) {
		t.Fatalf("clone has %d terminals, want %d", len(c.TermNames()), len(tr.TermNames()))
	}
	// Mutating the clone must not affect the original.
	n := c.TaxNode("a1")
	c.Lock(n, true)
	if tr.TaxNode("a1").Locked() {
		t.Error("locking a clone's node affected the original tree")
	}
}
