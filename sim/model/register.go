// register.go wires the model loader into the sim package's registration
// variable (NewModelFunc). This init() runs when any package imports sim/model,
// breaking the import cycle between sim/ (interface owner) and sim/model/
// (implementation). Production code imports sim/model directly; test code in
// package sim uses model_import_test.go for the blank import.
package model

import "github.com/inference-sim/organoid-sim/sim"

func init() {
	sim.NewModelFunc = New
}
