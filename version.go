package tiledb

import "github.com/wippyai/tiledb-go/capi"

// Version returns the engine version.
func Version() (major, minor, rev int32) {
	capi.Version(&major, &minor, &rev)
	return major, minor, rev
}
