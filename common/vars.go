// Package common holds build information and logger setup shared by commands.
package common

var (
	// Version is set at build time with -ldflags "-X ...common.Version=..."
	Version = "dev"

	// PackageName is the module path.
	PackageName = "github.com/ruteri/contract-spec-publisher"
)
