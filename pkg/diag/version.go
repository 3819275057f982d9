package diag

// Version information for the diag module.
const (
	// Version is the current version of the diag module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)
