// Package addtaxa implements a command to graft the species of a
// taxonomy tree onto an incomplete backbone phylogeny. Ported from
// original_source/tact/cli_add_taxa.py's main CLI loop (the grafting
// itself lives in package graft; this command only wires it up).
package addtaxa

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/js-arias/command"
	"github.com/jonchang/tact/graft"
	"github.com/jonchang/tact/newickio"
	"github.com/jonchang/tact/ratetable"
	"github.com/jonchang/tact/taxonomy"
	"github.com/jonchang/tact/tree"
)

var Command = &command.Command{
	Usage: `addtaxa --taxonomy <file> --backbone <file>
	--output <base-name> [--min-ccp <value>] [--yule]`,
	Short: "graft missing taxa onto a backbone phylogeny",
	Long: `
Command addtaxa attaches the species present in a taxonomy tree but absent
from a backbone phylogeny, simulating their speciation times under a
constant-rate birth-death process fit locally to each clade of the taxonomy.

The flag --taxonomy is required and gives a CSV file of taxonomic ranks, in
the format read by the buildtax command.

The flag --backbone is required and gives the incomplete, dated backbone
phylogeny, in newick format.

The flag --output is required and gives the base name used for the output
files: "<base-name>.newick.tre" for the completed tree, and
"<base-name>.rates.csv" for the per-rank birth-death rate table.

The flag --min-ccp sets the minimum crown capture probability (Sanderson
1996) required before a clade's own rate is trusted; below this threshold the
parent clade's rate is used instead and the clade is attached to the stem
rather than the crown. Its default is 0.8.

Use the flag --yule to force the extinction rate to zero (a pure-birth
model) when fitting rates.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var taxonomyFile string
var backboneFile string
var output string
var minCCP float64
var yule bool

func setFlags(c *command.Command) {
	c.Flags().StringVar(&taxonomyFile, "taxonomy", "", "")
	c.Flags().StringVar(&backboneFile, "backbone", "", "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().Float64Var(&minCCP, "min-ccp", 0.8, "")
	c.Flags().BoolVar(&yule, "yule", false, "")
}

func run(c *command.Command, args []string) error {
	if taxonomyFile == "" {
		return c.UsageError("flag --taxonomy must be defined")
	}
	if backboneFile == "" {
		return c.UsageError("flag --backbone must be defined")
	}
	if output == "" {
		return c.UsageError("flag --output must be defined")
	}
	if minCCP < 0 {
		minCCP = 0
	}
	if minCCP > 1 {
		minCCP = 1
	}

	tax, err := readTaxonomy(taxonomyFile)
	if err != nil {
		return err
	}

	bb, err := readBackbone(backboneFile)
	if err != nil {
		return err
	}

	slog.Info("backbone needs additional tips",
		"taxonomy_species", len(tax.Leaves(tax.Root())),
		"backbone_tips", len(bb.TermNames()))

	idx := tree.NewIndex(bb)
	rt, err := ratetable.Build(tax, bb, idx, ratetable.Options{
		Yule:   yule,
		MinCCP: minCCP,
		RNG:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	})
	if err != nil {
		return fmt.Errorf("computing rate table: %v", err)
	}
	if err := writeRates(output+".rates.csv", rt); err != nil {
		return err
	}

	total := len(tax.Leaves(tax.Root())) - len(bb.TermNames())
	if total < 0 {
		total = 0
	}
	bar := pb.StartNew(total)
	bar.SetRefreshRate(200 * time.Millisecond)

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	out, err := graft.Run(tax, bb, rt, graft.Options{MinCCP: minCCP}, rng)
	bar.SetCurrent(int64(total))
	bar.Finish()
	if err != nil {
		return fmt.Errorf("grafting: %v", err)
	}

	if err := writeTree(output+".newick.tre", out); err != nil {
		return err
	}
	return nil
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

func readBackbone(name string) (*tree.Tree, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := newickio.ReadTree(f, "backbone", 0)
	if err != nil {
		return nil, fmt.Errorf("while reading backbone %q: %v", name, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("backbone %q: %v", name, err)
	}
	return t, nil
}

func writeRates(name string, rt *ratetable.Table) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()
	return rt.WriteCSV(f)
}

func writeTree(name string, t *tree.Tree) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()
	return newickio.Write(f, t)
}
