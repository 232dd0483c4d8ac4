package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/platform"
)

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector leaves the platform table out of the Lua environment.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile reads and parses the Lua config at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > MaxConfigSize {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%s exceeds %d bytes", path, MaxConfigSize),
		}
	}

	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	L := newSandboxedVM(ctx)
	defer L.Close()

	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctx != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("evaluate config: %w", ctx.Err())
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global "webdrivers" table.
func extractConfig(L *lua.LState) (*Config, error) {
	root := L.GetGlobal(luaGlobalWebdrivers)
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid '" + luaGlobalWebdrivers + "' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)

	config := &Config{}

	if v := table.RawGetString(luaFieldCacheDir); v.Type() == lua.LTString {
		config.CacheDir = v.String()
	} else if v.Type() != lua.LTNil {
		return nil, fieldTypeError(luaFieldCacheDir, "string", v)
	}

	if v := table.RawGetString(luaFieldRetries); v.Type() == lua.LTNumber {
		n := int(lua.LVAsNumber(v))
		config.DownloadRetries = &n
	} else if v.Type() != lua.LTNil {
		return nil, fieldTypeError(luaFieldRetries, "number", v)
	}

	if v := table.RawGetString(luaFieldLog); v.Type() == lua.LTTable {
		logTable := v.(*lua.LTable)
		if lv := logTable.RawGetString(luaFieldLevel); lv.Type() == lua.LTString {
			config.Log.Level = lv.String()
		}
		if fv := logTable.RawGetString(luaFieldFormat); fv.Type() == lua.LTString {
			config.Log.Format = fv.String()
		}
	} else if v.Type() != lua.LTNil {
		return nil, fieldTypeError(luaFieldLog, "table", v)
	}

	if v := table.RawGetString(luaFieldProperties); v.Type() == lua.LTTable {
		props, err := extractProperties(v.(*lua.LTable))
		if err != nil {
			return nil, err
		}
		config.Properties = props
	} else if v.Type() != lua.LTNil {
		return nil, fieldTypeError(luaFieldProperties, "table", v)
	}

	if err := config.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return config, nil
}

// extractProperties converts the properties table to strings. Numbers and
// booleans are formatted; nil values (from platform conditionals) and
// false are dropped.
func extractProperties(table *lua.LTable) (map[string]string, error) {
	props := make(map[string]string)
	var err error

	table.ForEach(func(key, value lua.LValue) {
		if err != nil {
			return
		}
		if key.Type() != lua.LTString {
			err = &ParseError{
				Message: "invalid properties table",
				Detail:  fmt.Sprintf("property keys must be strings, got %s", key.Type()),
			}
			return
		}

		name := key.String()
		switch value.Type() {
		case lua.LTString:
			props[name] = value.String()
		case lua.LTNumber:
			props[name] = formatNumber(float64(lua.LVAsNumber(value)))
		case lua.LTBool:
			if lua.LVAsBool(value) {
				props[name] = "true"
			}
		case lua.LTNil:
		default:
			err = fieldTypeError(luaFieldProperties+"."+name, "string", value)
		}
	})
	if err != nil {
		return nil, err
	}

	return props, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func fieldTypeError(field, want string, got lua.LValue) error {
	return &ParseError{
		Message: fmt.Sprintf("invalid value for '%s'", field),
		Detail:  fmt.Sprintf("expected %s, got %s", want, got.Type()),
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		// Keep the part before the Lua stack traceback
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
