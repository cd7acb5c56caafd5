// Package build composes one build invocation: the site identity and the
// paths derived from it, change detection against the stored fingerprint,
// plugin resolution and the diagnostics collected along the way.
//
// A Context is owned by a single goroutine. Path getters are computed from
// the current identity on every call, so setters may run in any order.
//
// Failures that a build can survive (unknown plugins, missing watched files,
// unreadable fingerprints) are reported through diagnostics or logs. Only a
// failed fingerprint write is returned as an error from HasNew.
package build
