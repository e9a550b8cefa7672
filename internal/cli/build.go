package cli

import (
	"context"

	"github.com/stoneforge/mason/internal/build"
)

// Represents the 'mason build' command.
type BuildCmd struct {
	Recipe string `arg:"" help:"Path to the recipe file." type:"existingfile"`
	Output string `short:"o" help:"Directory to write packages into." placeholder:"DIR"`
	Jobs   int    `short:"j" help:"Parallel jobs for stage scripts (0 = autodetect)." placeholder:"N"`
	Macros string `help:"Override the macro definitions directory." placeholder:"DIR"`
}

// Executes the build command.
//
// Drives one recipe through the full pipeline: root preparation, script
// validation, upstream fetching, per-architecture builds, asset collection,
// and package emission.
func (c *BuildCmd) Run(ctx context.Context) error {
	b, err := build.New(c.Recipe, build.Options{
		Output: c.Output,
		Jobs:   c.Jobs,
		Macros: c.Macros,
	})
	if err != nil {
		return err
	}

	return b.Build(ctx)
}
