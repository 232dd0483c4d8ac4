package config

// Lua schema field names and globals
const (
	luaGlobalWebdrivers = "webdrivers"
	luaFieldCacheDir    = "cache_dir"
	luaFieldRetries     = "download_retries"
	luaFieldProperties  = "properties"
	luaFieldLog         = "log"
	luaFieldLevel       = "level"
	luaFieldFormat      = "format"
)

// Limits applied while loading configuration
const (
	MaxConfigSize       = 1 << 20 // bytes
	MaxPropertyCount    = 256
	MaxPropertyValueLen = 4096
	MaxDownloadRetries  = 10
)

// Settings keys, shared by the Lua file, the local override file, the
// environment and command-line flags.
const (
	KeyCacheDir        = "cache_dir"
	KeyDownloadRetries = "download_retries"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	keyProperties      = "properties"
)

// Environment variables
const (
	EnvPrefix     = "WEBDRIVERS"
	EnvConfigPath = "WEBDRIVERS_CONFIG"
)

// LocalConfigFile is the project-local override filename.
const LocalConfigFile = "webdrivers.local.toml"
