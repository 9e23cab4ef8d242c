// TACT grafts missing taxa onto an incomplete, dated backbone
// phylogeny, guided by a taxonomic hierarchy or an explicit TOML
// constraint file, simulating each missing species' speciation time
// under a constant-rate birth-death process fit locally to its clade.
package main

import (
	"github.com/js-arias/command"
	"github.com/jonchang/tact/cmd/tact/addtaxa"
	"github.com/jonchang/tact/cmd/tact/addtoml"
	"github.com/jonchang/tact/cmd/tact/buildtax"
	"github.com/jonchang/tact/cmd/tact/checkresults"
)

var app = &command.Command{
	Usage: "tact <command> [<argument>...]",
	Short: "a tool to graft missing taxa onto dated phylogenies",
}

func init() {
	app.Add(buildtax.Command)
	app.Add(addtaxa.Command)
	app.Add(addtoml.Command)
	app.Add(checkresults.Command)
}

func main() {
	app.Main()
}
