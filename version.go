package mdbxkv

import "fmt"

// Version constants
const (
	// Major is the major version number
	Major = 0

	// Minor is the minor version number
	Minor = 1

	// Patch is the patch version number
	Patch = 0
)

// Version returns the library version string.
func Version() string {
	return fmt.Sprintf("mdbxkv %d.%d.%d", Major, Minor, Patch)
}
