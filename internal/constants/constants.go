package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "rux"

	// ConfigFileName is the default config file name
	ConfigFileName = "rux.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "RUX"

	// ConfigEnvVar points at an explicit config file when no other is found
	ConfigEnvVar = "RUX_CONFIG"

	// SpecExtension is the file extension of architecture specifications
	SpecExtension = ".rux"
)

// Output format constants
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Exit codes of the validate and parse commands
const (
	ExitOK         = 0
	ExitViolations = 1
	ExitFatal      = 2
)

// DefaultGlobalFiles are spec basenames whose rules apply to every component
var DefaultGlobalFiles = []string{
	"global.rux",
	"base.rux",
	"_global.rux",
	"architecture.rux",
}
