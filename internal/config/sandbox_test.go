package config

import (
	"context"
	"strings"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"
)

func TestSandboxedVM(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
		errMsg  string
	}{
		{name: "string library", code: `x = string.upper("phantomjs")`},
		{name: "table library", code: `t = {"a"}; table.insert(t, "b"); s = table.concat(t, ",")`},
		{name: "math library", code: `x = math.max(1, 2, 3)`},
		{name: "base functions", code: `x = tostring(2); y = tonumber("1"); for k, v in pairs({a = 1}) do end`},

		{name: "os blocked", code: `x = os.getenv("HOME")`, wantErr: true, errMsg: "attempt to index"},
		{name: "os.execute blocked", code: `os.execute("true")`, wantErr: true, errMsg: "attempt to index"},
		{name: "io blocked", code: `f = io.open("/etc/passwd")`, wantErr: true, errMsg: "attempt to index"},
		{name: "debug blocked", code: `debug.getinfo(1)`, wantErr: true, errMsg: "attempt to index"},
		{name: "require blocked", code: `m = require("socket")`, wantErr: true, errMsg: "attempt to call"},
		{name: "dofile blocked", code: `dofile("/tmp/x.lua")`, wantErr: true, errMsg: "attempt to call"},
		{name: "loadfile blocked", code: `f = loadfile("/tmp/x.lua")`, wantErr: true, errMsg: "attempt to call"},
		{name: "load blocked", code: `f = load("return 1")`, wantErr: true, errMsg: "attempt to call"},
		{name: "loadstring blocked", code: `f = loadstring("return 1")`, wantErr: true, errMsg: "attempt to call"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			L := newSandboxedVM(context.Background())
			defer L.Close()

			err := L.DoString(tt.code)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DoString(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
			if tt.wantErr && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("DoString(%q) error = %v, want substring %q", tt.code, err, tt.errMsg)
			}
		})
	}
}

func TestSandboxedVM_Globals(t *testing.T) {
	L := newSandboxedVM(context.Background())
	defer L.Close()

	for _, name := range []string{"os", "io", "debug", "package", "require", "collectgarbage"} {
		if v := L.GetGlobal(name); v.Type() != lua.LTNil {
			t.Errorf("global %s = %v, want nil", name, v.Type())
		}
	}
	for _, name := range []string{"string", "table", "math"} {
		if v := L.GetGlobal(name); v.Type() != lua.LTTable {
			t.Errorf("global %s = %v, want table", name, v.Type())
		}
	}
}

func TestSandboxedVM_StringResults(t *testing.T) {
	L := newSandboxedVM(context.Background())
	defer L.Close()

	code := `
		result = {}
		result.format = string.format("%s-%d", "v", 2)
		result.sub = string.sub("geckodriver", 1, 5)
		result.concat = table.concat({"1", "2"}, ".")
	`
	if err := L.DoString(code); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	result := L.GetGlobal("result").(*lua.LTable)
	checks := map[string]string{"format": "v-2", "sub": "gecko", "concat": "1.2"}
	for field, want := range checks {
		if got := result.RawGetString(field).String(); got != want {
			t.Errorf("result.%s = %q, want %q", field, got, want)
		}
	}
}

func TestSandboxedVM_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	L := newSandboxedVM(ctx)
	defer L.Close()

	if err := L.DoString(`while true do end`); err == nil {
		t.Fatal("infinite loop finished without error")
	}
}
