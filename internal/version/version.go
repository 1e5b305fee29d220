package version

import "fmt"

// Populated through -ldflags at build time.
var (
	App       string = "THYNKAPI"
	Version   string
	GitCommit string
	BuildTime string
	GoVersion string
	BuildOS   string
	BuildArch string
)

// PrintVersion prints the version information
func PrintVersion() {
	fmt.Print(String())
}

// String renders the build information, one field per line.
func String() string {
	s := fmt.Sprintf("%s version %s\n", App, getVersion())
	if GitCommit != "" {
		s += fmt.Sprintf("Git commit: %s\n", getShortCommit())
	}
	if BuildTime != "" {
		s += fmt.Sprintf("Build time: %s\n", BuildTime)
	}
	if GoVersion != "" {
		s += fmt.Sprintf("Go version: %s\n", GoVersion)
	}
	if BuildOS != "" && BuildArch != "" {
		s += fmt.Sprintf("Built for: %s/%s\n", BuildOS, BuildArch)
	}
	return s
}

func getShortCommit() string {
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

func getVersion() string {
	if Version != "" {
		return Version
	}
	return "dev"
}
