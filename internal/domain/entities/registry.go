package entities

// RegistryEntry is one allow-list row naming an upstream package and how it is republished.
type RegistryEntry struct {
	ID                string
	Ignored           bool
	Listed            bool
	Version           string // NuGet version range, e.g. "[1.0.0,)"
	DefineConstraints []string
	Analyzer          bool
	IncludePrerelease bool
	IncludeUnlisted   bool
}
