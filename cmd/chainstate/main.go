// This program runs the block-validating state-transition engine against a
// local set of persistent stores.
package main

import (
	"github.com/chainforge/chainstate/cmd/chainstate/cmd"
)

// build is the git version of this program. It can be set at build time
// with the linker's -X flag.
var build = "develop"

func main() {
	cmd.Execute(build)
}
