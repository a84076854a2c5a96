package ir

// Version constants for the serialized transform format.
const (
	// FormatVersion is the canonical transform encoding version.
	FormatVersion = "1"

	// EngineVersion is the imputer release version.
	EngineVersion = "0.1.0"
)
