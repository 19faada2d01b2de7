// Package misc keeps build time information.
package misc

// These are set by the linker (see Taskfile.yml).
var (
	appName = "xtc"
	version = "dev"
	gitHash = "unknown"
)

// GetAppName returns program name used for logs, reports and panic files.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns git hash of the source tree program was built from.
func GetGitHash() string {
	return gitHash
}
