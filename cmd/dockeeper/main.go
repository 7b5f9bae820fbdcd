package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/dockeeper/cmd/dockeeper/commands"
	"git.home.luguber.info/inful/dockeeper/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("dockeeper"),
		kong.Description("Verify that Go code samples in documentation compile and run."),
		kong.Vars{"version": fmt.Sprintf("dockeeper %s (%s)", version.Version, version.GitCommit)},
	)
	if err := ctx.Run(&commands.Global{}); err != nil {
		fmt.Fprintf(os.Stderr, "dockeeper: %v\n", err)
		os.Exit(1)
	}
}
