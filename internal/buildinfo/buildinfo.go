// Package buildinfo carries the identifiers the release scripts stamp
// into the binary with -ldflags -X.
package buildinfo

var (
	// Release is the tagged version, or "dev" for untagged builds.
	Release = "dev"

	// Revision is the VCS commit the binary was built from.
	Revision = "unknown"

	// BuiltAt is the build timestamp.
	BuiltAt = "unknown"
)

// Tag returns the most specific identifier available, for window titles
// and log banners.
func Tag() string {
	if Release != "" && Release != "dev" {
		return Release
	}
	if Revision != "" && Revision != "unknown" {
		return Revision
	}
	return "dev"
}
