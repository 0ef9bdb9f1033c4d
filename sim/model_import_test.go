package sim_test

// Blank import triggers sim/model's init(), which registers NewModelFunc.
// This allows package sim's internal test files to load model files
// without directly importing sim/model (which would create an import cycle).
import _ "github.com/inference-sim/organoid-sim/sim/model"
