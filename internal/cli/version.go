package cli

import (
	"fmt"

	"github.com/stoneforge/mason/internal"
)

// Represents the 'mason version' command.
type VersionCmd struct{}

// Prints the binary name and its build identity.
func (c *VersionCmd) Run() error {
	fmt.Printf("%s %s\n", internal.Name, internal.VersionString())
	return nil
}
