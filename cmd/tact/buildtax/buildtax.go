// Package buildtax implements a command to build a taxonomic tree from
// a ranks CSV file. Ported from
// original_source/tact/cli_taxonomy.py's build_taxonomic_tree.
package buildtax

import (
	"fmt"
	"io"
	"os"

	"github.com/js-arias/command"
	"github.com/jonchang/tact/taxonomy"
)

var Command = &command.Command{
	Usage: `buildtax [-o|--output <file>] [<taxonomy-file>]`,
	Short: "build a taxonomic tree from a ranks CSV",
	Long: `
Command buildtax reads a CSV file in which each column is a taxonomic rank
(from most inclusive to least inclusive, with the last column as the species
name) and each row is a separate species, and builds the corresponding
taxonomic tree.

The taxonomy file is given as an argument. If no file is given the input
will be read from the standard input.

The output is a topology-only newick tree (it carries no branch lengths, only
rank labels). The addtaxa and checkresults commands do not read this tree;
they take the ranks CSV file itself. By default it is printed to the standard
output. Use the --output, or -o, flag
to define an output file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var output string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
}

func run(c *command.Command, args []string) (err error) {
	r := c.Stdin()
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	tax, err := taxonomy.BuildCSV(r)
	if err != nil {
		return fmt.Errorf("while reading taxonomy: %v", err)
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

	if err := writeTaxonomy(w, tax); err != nil {
		return fmt.Errorf("while writing to %q: %v", outName, err)
	}
	return nil
}

func writeTaxonomy(w io.Writer, tax *taxonomy.Tree) error {
	return taxonomy.WriteNewick(w, tax)
}
