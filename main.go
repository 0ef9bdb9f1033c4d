// main.go
//
// Entry point of the organoid-sim CLI; subcommands live in cmd/.

package main

import (
	"github.com/inference-sim/organoid-sim/cmd"
)

func main() {
	cmd.Execute()
}
