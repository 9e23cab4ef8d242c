// Package ratetable pre-computes, for every labeled taxonomic rank, a
// constant-rate birth-death fit (or an inherited/fallback rate) used
// by the grafting engine. Ported from
// original_source/tact/cli_add_taxa.py's process_node/run_precalcs
// (spec.md §4.3).
package ratetable

import (
	"encoding/csv"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/jonchang/tact/bd"
	"github.com/jonchang/tact/sampler"
	"github.com/jonchang/tact/taxonomy"
	"github.com/jonchang/tact/tree"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Entry is the fitted (or inherited) rate for a single labeled rank.
type Entry struct {
	Birth  float64
	Death  float64
	CCP    float64
	Source string
}

// Table maps taxonomy node labels (ranks and species) and the key
// "ROOT", for the whole backbone, to their Entry. Immutable once built.
type Table struct {
	entries map[string]Entry
	order   []string
}

// Get returns the entry for label, and whether it was found.
func (t *Table) Get(label string) (Entry, bool) {
	e, ok := t.entries[label]
	return e, ok
}

// WriteCSV writes the table in the five-column
// taxon,birth,death,ccp,source format used by BASE.rates.csv
// (spec.md §6).
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write([]string{"taxon", "birth", "death", "ccp", "source"}); err != nil {
		return err
	}
	for _, label := range t.order {
		e := t.entries[label]
		if err := cw.Write([]string{
			label,
			formatFloat(e.Birth),
			formatFloat(e.Death),
			formatFloat(e.CCP),
			e.Source,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Options configures rate table construction.
type Options struct {
	Yule   bool
	MinCCP float64
	RNG    *rand.Rand
}

func fit(ages []float64, sf float64, opts Options) (birth, death float64, err error) {
	if opts.Yule {
		p, err := bd.OptimYule(ages, sf, opts.RNG)
		if err != nil {
			return 0, 0, err
		}
		return p.Birth, p.Death, nil
	}
	p, err := bd.OptimBD(ages, sf, opts.RNG)
	if err != nil {
		return 0, 0, err
	}
	return p.Birth, p.Death, nil
}

func labelSet(labels []string) map[string]bool {
	m := make(map[string]bool, len(labels))
	for _, l := range labels {
		m[l] = true
	}
	return m
}

func intersect(a []string, bSet map[string]bool) []string {
	var out []string
	for _, v := range a {
		if bSet[v] {
			out = append(out, v)
		}
	}
	return out
}

// Build walks tax in pre-order, computing a rate table entry for
// every labeled rank, per the precondition cascade of spec.md §4.3.
func Build(tax *taxonomy.Tree, bb *tree.Tree, idx *tree.Index, opts Options) (*Table, error) {
	tbl := &Table{entries: make(map[string]Entry)}

	backboneTips := labelSet(bb.TermNames())
	taxonomyTips := tax.Leaves(tax.Root())
	rootSample := intersect(taxonomyTips, backboneTips)
	rootSF := float64(len(rootSample)) / float64(len(taxonomyTips))

	var rootB, rootD float64
	if rootMRCA := idx.MRCA(idx.Bitmask(rootSample)); rootMRCA != nil && len(rootSample) > 1 {
		b, d, err := fit(bb.InternalAges(rootMRCA), rootSF, opts)
		if err == nil {
			rootB, rootD = b, d
		}
	}
	tbl.entries["ROOT"] = Entry{Birth: rootB, Death: rootD, CCP: 0, Source: "ROOT"}
	tbl.order = append(tbl.order, "ROOT")

	parentKey := func(n *taxonomy.Node) string {
		p := n.Parent()
		if p == nil || p == tax.Root() {
			return "ROOT"
		}
		return p.Label
	}

	for _, node := range tax.PreOrder() {
		parent := tbl.entries[parentKey(node)]

		e := Entry{Birth: parent.Birth, Death: parent.Death, CCP: 0, Source: "from parent"}

		S := tax.Leaves(node)
		sSet := labelSet(S)
		E := intersect(S, backboneTips)

		switch {
		case len(E) == 0:
			e.Source = "from parent (unsampled)"
		default:
			mrca := idx.MRCA(idx.Bitmask(E))
			if mrca == nil || !bb.IsMonophyletic(mrca, sSet) {
				e.Source = "from parent (not monophyletic)"
				break
			}
			extant, total := len(E), len(S)
			if extant > total {
				e.Source = "extant exceeds total"
				break
			}
			ccp, ccpErr := sampler.CrownCaptureProbability(total, extant)
			if ccpErr != nil {
				e.Source = "from parent (invalid sample)"
				break
			}
			e.CCP = ccp
			switch {
			case total == 1:
				e.Source = "singleton"
			case total == 2:
				e.Source = "cherry"
			case ccp < opts.MinCCP:
				e.Source = "crown capture probability"
			default:
				sf := float64(extant) / float64(total)
				b, d, fitErr := fit(bb.InternalAges(mrca), sf, opts)
				if fitErr != nil {
					e.Source = "from parent (optimizer failed)"
					break
				}
				e.Birth, e.Death, e.Source = b, d, "computed"
			}
		}

		tbl.entries[node.Label] = e
		tbl.order = append(tbl.order, node.Label)
	}

	return tbl, nil
}
