package config

import (
	"context"

	lua "github.com/yuin/gopher-lua"
)

// Lua VM limits for config evaluation
const (
	luaCallStackSize = 120
	luaRegistrySize  = 1024 * 20
)

// safeLibs are the only standard libraries opened in a config VM.
var safeLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// sandboxLuaVM removes the globals that could reach outside the VM:
// the os, io and debug libraries and every way of loading more code.
//
// string, table, math and the basic functions (type, tostring, pairs, ...)
// stay available so configs can compute values from the platform table.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range []string{
		"os", "io", "debug", "package",
		"require", "module", "dofile", "loadfile", "load", "loadstring",
		"collectgarbage", "newproxy",
	} {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a Lua VM with only the safe libraries opened and
// the sandbox applied. Evaluation stops when ctx is done.
func newSandboxedVM(ctx context.Context) *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: luaCallStackSize,
		RegistrySize:  luaRegistrySize,
	})

	for _, lib := range safeLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	sandboxLuaVM(L)

	if ctx != nil {
		L.SetContext(ctx)
	}
	return L
}
