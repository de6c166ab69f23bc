package vm

import (
	"time"

	"wisp/lang/value"
)

// defineClock installs the one native the spec requires out of the box
// (spec §6 "clock() returning seconds since some epoch").
func (vm *VM) defineClock() {
	vm.DefineNative("clock", func([]value.Value) (value.Value, error) {
		return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
	})
}

// DefineNative registers a host-implemented callable under name, reachable
// from wisp source as a global (spec §6 "Adding another native is a
// host-side call define_native(name, fn)").
func (vm *VM) DefineNative(name string, fn func(args []value.Value) (value.Value, error)) {
	n := &value.Native{Name: name, Fn: fn}
	vm.globals.Put(vm.interner.Intern(name), n)
}
