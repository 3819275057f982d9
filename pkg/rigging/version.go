package rigging

// Version information for the rigging orchestrator module.
const (
	// Version is the current version of the rigging orchestrator module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)
