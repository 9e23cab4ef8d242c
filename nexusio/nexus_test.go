package nexusio_test

import (
	"strings"
	"testing"

	"github.com/jonchang/tact/nexusio"
)

func TestReadTree(t *testing.T) {
	in := `#NEXUS
begin trees;
	translate
		1 Gallus_gallus,
		2 Macropus_fuliginosus,
		3 Homo_sapiens;
	tree backbone = (1:324,(2:176,3:176):148);
end;
`
	tr, err := nexusio.ReadTree(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Gallus gallus", "Homo sapiens", "Macropus fuliginosus"}
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
