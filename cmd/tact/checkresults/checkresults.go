// Package checkresults implements a command to check a completed
// (simulated) phylogeny for consistency with its backbone source tree
// and a taxonomy, writing one report row per taxonomic rank and
// flagging ranks where the two trees disagree on monophyly or hold
// more tips than the taxonomy lists. Ported from
// original_source/tact/cli_check_trees.py.
package checkresults

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/js-arias/command"
	"github.com/jonchang/tact/bd"
	"github.com/jonchang/tact/newickio"
	"github.com/jonchang/tact/taxonomy"
	"github.com/jonchang/tact/tree"
)

var Command = &command.Command{
	Usage: `checkresults --backbone <file> --taxonomy <file>
	[-o|--output <file>] <simulated-file>`,
	Short: "check a completed phylogeny against its backbone and taxonomy",
	Long: `
Command checkresults reads a phylogeny produced by addtaxa or addtoml and
compares it, clade by clade, against its original backbone phylogeny and the
taxonomy used to build it. It writes one row per taxonomic rank with the
tip counts, monophyly and fitted rates of the clade in both trees, and a
warning where the backbone and the simulated tree disagree on monophyly or
a clade holds more tips than the taxonomy lists.

The SIMULATED phylogeny must be given as an argument, in newick format.

The flag --backbone is required and gives the original incomplete backbone
phylogeny, in newick format.

The flag --taxonomy is required and gives the ranks CSV file (in the format
read by the buildtax command) used to build the simulated phylogeny.

The report is a CSV file. By default it is printed to the standard output.
Use the flag --output, or -o, to define an output file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var backboneFile string
var taxonomyFile string
var output string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&backboneFile, "backbone", "", "")
	c.Flags().StringVar(&taxonomyFile, "taxonomy", "", "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
}

var reportHeader = []string{
	"node", "taxonomy_tips", "backbone_tips", "simulated_tips",
	"backbone_monophyletic", "simulated_monophyletic",
	"backbone_birth", "simulated_birth", "backbone_death", "simulated_death",
	"warnings",
}

func run(c *command.Command, args []string) (err error) {
	if len(args) == 0 {
		return c.UsageError("expecting a simulated tree file")
	}
	if backboneFile == "" {
		return c.UsageError("flag --backbone must be defined")
	}
	if taxonomyFile == "" {
		return c.UsageError("flag --taxonomy must be defined")
	}

	tax, err := readTaxonomy(taxonomyFile)
	if err != nil {
		return err
	}
	bb, err := readTree(backboneFile)
	if err != nil {
		return err
	}
	sim, err := readTree(args[0])
	if err != nil {
		return err
	}

	bbTips := make(map[string]bool)
	for _, n := range bb.TermNames() {
		bbTips[n] = true
	}
	simTips := make(map[string]bool)
	for _, n := range sim.TermNames() {
		simTips[n] = true
	}

	w := c.Stdout()
	outName := "stdout"
	if output != "" {
		outName = output
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer func() {
			e := f.Close()
			if e != nil && err == nil {
				err = e
			}
		}()
		w = f
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("while writing to %q: %v", outName, err)
	}

	rng := rand.New(rand.NewPCG(1, 1))
	for _, node := range tax.PreOrder() {
		if node.IsSpecies {
			continue
		}
		row := analyzeTaxon(bb, sim, bbTips, simTips, node, tax, rng)
		if row == nil {
			continue
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("while writing to %q: %v", outName, err)
		}
	}
	return nil
}

func analyzeTaxon(bb, sim *tree.Tree, bbTips, simTips map[string]bool, node *taxonomy.Node, tax *taxonomy.Tree, rng *rand.Rand) []string {
	species := tax.Leaves(node)
	if len(species) == 0 {
		return nil
	}
	sSet := make(map[string]bool, len(species))
	for _, sp := range species {
		sSet[sp] = true
	}

	bbSample := intersect(species, bbTips)
	bbNtax, bbMono, bbBirth, bbDeath := summarizeClade(bb, bbSample, sSet, rng)

	simSample := intersect(species, simTips)
	simNtax, simMono, simBirth, simDeath := summarizeClade(sim, simSample, sSet, rng)

	var warnings string
	if bbNtax > len(species) {
		warnings = appendWarning(warnings, "BACKBONE clade has more tips than the taxonomy suggests")
	}
	if simNtax > len(species) {
		warnings = appendWarning(warnings, "SIMULATED clade has more tips than the taxonomy suggests")
	}
	if bbMono != simMono && bbNtax > 0 {
		warnings = appendWarning(warnings, "BACKBONE and SIMULATED trees differ in monophyly for this taxon")
	}

	return []string{
		node.Label,
		strconv.Itoa(len(species)),
		strconv.Itoa(bbNtax),
		strconv.Itoa(simNtax),
		strconv.FormatBool(bbMono),
		strconv.FormatBool(simMono),
		formatRate(bbBirth),
		formatRate(simBirth),
		formatRate(bbDeath),
		formatRate(simDeath),
		warnings,
	}
}

// summarizeClade returns the sampled MRCA's tip count, whether it is
// monophyletic for sample, and its fitted birth/death rates (0, 0 if
// the clade is absent, not monophyletic, or has fewer than two tips).
func summarizeClade(t *tree.Tree, sample []string, sSet map[string]bool, rng *rand.Rand) (ntax int, mono bool, birth, death float64) {
	if len(sample) == 0 {
		return 0, false, 0, 0
	}
	mrca := t.MRCA(sample...)
	if mrca == nil {
		return 0, false, 0, 0
	}
	leaves := t.LeafLabels(mrca)
	ntax = len(leaves)
	if !t.IsMonophyletic(mrca, sSet) {
		return ntax, false, 0, 0
	}
	mono = true
	if ntax < 2 {
		return ntax, mono, 0, 0
	}
	sf := float64(ntax) / float64(len(sSet))
	if sf > 1 {
		sf = 1
	}
	p, err := bd.OptimBD(t.InternalAges(mrca), sf, rng)
	if err != nil {
		return ntax, mono, 0, 0
	}
	return ntax, mono, p.Birth, p.Death
}

func formatRate(r float64) string {
	if r == 0 {
		return ""
	}
	return strconv.FormatFloat(r, 'g', -1, 64)
}

func appendWarning(warnings, next string) string {
	if warnings == "" {
		return next
	}
	return warnings + "; " + next
}

func intersect(labels []string, set map[string]bool) []string {
	var out []string
	for _, l := range labels {
		if set[l] {
			out = append(out, l)
		}
	}
	return out
}

func readTaxonomy(name string) (*taxonomy.Tree, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := taxonomy.BuildCSV(f)
	if err != nil {
		return nil, fmt.Errorf("while reading taxonomy %q: %v", name, err)
	}
	return t, nil
}

func readTree(name string) (*tree.Tree, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := newickio.ReadTree(f, "tree", 0)
	if err != nil {
		return nil, fmt.Errorf("while reading %q: %v", name, err)
	}
	return t, nil
}
