package tsvio_test

import (
	"strings"
	"testing"

	"github.com/jonchang/tact/tsvio"
)

const dinosaurs = `# time calibrated phylogenetic tree
tree	node	parent	age	taxon
dinosaurs	0	-1	235	""
dinosaurs	1	0	230	Eoraptor_lunensis
dinosaurs	2	0	170	""
dinosaurs	3	2	145	Ceratosaurus_nasicornis
dinosaurs	4	2	71	Carnotaurus_sastrei
`

func TestReadTree(t *testing.T) {
	tr, err := tsvio.ReadTree(strings.NewReader(dinosaurs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := tr.Root().Age(), 235.0; got != want {
		t.Errorf("root age: got %g, want %g", got, want)
	}
	want := []string{"Carnotaurus sastrei", "Ceratosaurus nasicornis", "Eoraptor lunensis"}
	got := tr.TermNames()
	if len(got) != len(want) {
		t.Fatalf("term names: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("term %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	tr, err := tsvio.ReadTree(strings.NewReader(dinosaurs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sb strings.Builder
	if err := tsvio.Write(&sb, tr); err != nil {
		t.Fatalf("write: %v", err)
	}
	tr2, err := tsvio.ReadTree(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("re-reading written tree: %v", err)
	}
	if got, want := len(tr2.TermNames()), len(tr.TermNames()); got != want {
		t.Errorf("term count after round trip: got %d, want %d", got, want)
	}
}
