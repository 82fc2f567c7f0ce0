// Command settlectl validates, summarizes and renders settlement files
// without a database.
package main

import (
	"github.com/alecthomas/kong"
)

var (
	// Version is set via ldflags when building.
	Version = ""

	cli struct {
		Version kong.VersionFlag `help:"Show version information."`
		Globals
		Commands
	}
)

func main() {
	ctx := kong.Parse(&cli,
		kong.Vars{"version": buildVersion()},
		kong.Name("settlectl"),
		kong.Description("Validate, summarize and render game settlement bills."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func buildVersion() string {
	if Version == "" {
		return "dev"
	}
	return Version
}
