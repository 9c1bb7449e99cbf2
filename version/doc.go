// Package version reports the build version of npuflow binaries.
package version
