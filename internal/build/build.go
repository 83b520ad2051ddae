// Package build contains build-time metadata for the binary.
package build

var (
	// Slug is the command name of the application.
	Slug = "scenrun"

	// AppName is the display name of the application.
	AppName = "Scenrun"

	// Version is set at build time via -ldflags.
	Version = "0.0.0-dev"
)
