package version

// Build information, overridden with -ldflags "-X" at release time
var (
	// Version is the release tag; it is also sent in the feed User-Agent
	Version = "dev"

	// GitCommit is the commit the binary was built from
	GitCommit = "unknown"

	// BuildDate is the UTC build timestamp
	BuildDate = "unknown"

	// GoVersion is the toolchain that produced the binary
	GoVersion = "unknown"
)

// productName prefixes the User-Agent header.
const productName = "cloud-range-blocker"

// GetVersion returns a formatted version string
func GetVersion() string {
	if Version == "dev" {
		return "dev (development build)"
	}
	return Version
}

// GetFullVersion returns a detailed version string with all build information
func GetFullVersion() string {
	return "Version: " + Version + "\n" +
		"Git Commit: " + GitCommit + "\n" +
		"Build Date: " + BuildDate + "\n" +
		"Go Version: " + GoVersion
}

// UserAgent is sent with every feed download.
func UserAgent() string {
	return productName + "/" + Version
}
