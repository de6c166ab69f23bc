package vm

import "wisp/lang/value"

// frame is a runtime activation record for one closure call (spec §3).
// slots is the absolute index into vm.stack of the closure itself; its
// arguments and locals follow contiguously.
type frame struct {
	closure *value.Closure
	ip      int
	slots   int
}
