package version

// Set with -ldflags "-X github.com/raphaelreyna/igd/pkg/version.Version=..."
var (
	Version = "dev"
	Credit  string
	License = "Apache License 2.0"
)
