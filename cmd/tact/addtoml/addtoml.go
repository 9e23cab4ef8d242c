// Package addtoml implements a command to graft missing taxa onto a
// backbone phylogeny using an explicit TOML constraint file instead of
// a taxonomy tree. Ported from
// original_source/tact/cli_add_toml.py's main CLI loop; the per-item
// logic itself lives in package tacttoml.
package addtoml

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/js-arias/command"
	"github.com/jonchang/tact/nexusio"
	"github.com/jonchang/tact/newickio"
	"github.com/jonchang/tact/tacttoml"
	"github.com/jonchang/tact/tree"
)

var Command = &command.Command{
	Usage: `addtoml --config <file> --backbone <file>
	--output <base-name> [--replicates <number>] [--cores <number>]`,
	Short: "graft taxa described by a TOML constraint file",
	Long: `
Command addtoml attaches taxa onto a backbone phylogeny using a TOML file
that explicitly lists, for each group of missing species, the include and
exclude MRCA constraints bounding where it may attach (instead of inferring
this placement from a taxonomy tree, as the addtaxa command does).

The flag --config is required and names the TOML constraint file.

The flag --backbone is required and gives the incomplete, dated backbone
phylogeny, in newick format.

The flag --output is required and gives the base name used for the output
files: "<base-name>.<replicate>.newick.tre" and
"<base-name>.<replicate>.nexus.tre" for each completed replicate.

The flag --replicates sets how many independent completed trees to generate;
its default is 1. The flag --cores sets how many replicates may run
concurrently; its default is 1.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var configFile string
var backboneFile string
var output string
var replicates int
var cores int

func setFlags(c *command.Command) {
	c.Flags().StringVar(&configFile, "config", "", "")
	c.Flags().StringVar(&backboneFile, "backbone", "", "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().IntVar(&replicates, "replicates", 1, "")
	c.Flags().IntVar(&cores, "cores", 1, "")
}

func run(c *command.Command, args []string) error {
	if configFile == "" {
		return c.UsageError("flag --config must be defined")
	}
	if backboneFile == "" {
		return c.UsageError("flag --backbone must be defined")
	}
	if output == "" {
		return c.UsageError("flag --output must be defined")
	}
	if replicates <= 0 {
		replicates = 1
	}
	if cores <= 0 {
		cores = 1
	}

	cfg, err := readConfig(configFile)
	if err != nil {
		return err
	}

	bb, err := readBackbone(backboneFile)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	trees, err := tacttoml.Run(bb, cfg.Tact, replicates, cores, rng)
	if err != nil {
		return fmt.Errorf("running replicates: %v", err)
	}

	for i, t := range trees {
		base := output + "." + strconv.Itoa(i)
		if err := writeNewick(base+".newick.tre", t); err != nil {
			return err
		}
		if err := writeNexus(base+".nexus.tre", t); err != nil {
			return err
		}
	}
	return nil
}

func readConfig(name string) (*tacttoml.Config, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := tacttoml.ParseConfig(f)
	if err != nil {
		return nil, fmt.Errorf("while reading config %q: %v", name, err)
	}
	return cfg, nil
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

func writeNewick(name string, t *tree.Tree) (err error) {
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

func writeNexus(name string, t *tree.Tree) (err error) {
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
	coll := newickio.NewCollection()
	if err := coll.Add(t); err != nil {
		return err
	}
	return nexusio.Write(f, coll)
}
