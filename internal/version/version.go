package version

// Version is the engine release. Set at build time with
// -ldflags "-X github.com/rxtech-lab/argo-autotrader/internal/version.Version=1.2.3".
// "main" marks a development build.
var Version = "v0.3.0"

// GetVersion returns the running engine version.
func GetVersion() string {
	return Version
}
