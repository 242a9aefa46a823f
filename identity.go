package macromem

import (
	"regexp"
	"strings"
)

// FallbackIdentity is used when no locator or legacy name is available.
const FallbackIdentity = "Memory_Functions"

var scriptSuffix = regexp.MustCompile(`(?i)\.js$`)

// IdentitySources are the inputs of the caller identity chain, strongest
// first.
type IdentitySources struct {
	// Locator is the consuming unit's module URL, e.g. file:///macros/Join_Zoom.js.
	Locator string
	// LegacyName is the unit name reported by older hosts.
	LegacyName string
}

// ResolveIdentity picks the first usable source: the last path segment of
// Locator without a .js suffix, then LegacyName, then fallback. An empty
// fallback selects FallbackIdentity.
func ResolveIdentity(src IdentitySources, fallback string) string {
	if name := identityFromLocator(src.Locator); name != "" {
		return name
	}
	if name := strings.TrimSpace(src.LegacyName); name != "" {
		return name
	}
	if name := strings.TrimSpace(fallback); name != "" {
		return name
	}
	return FallbackIdentity
}

// A locator ending in "/" yields an empty segment and falls through to the
// next source.
func identityFromLocator(locator string) string {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return ""
	}
	segment := locator[strings.LastIndex(locator, "/")+1:]
	return scriptSuffix.ReplaceAllString(segment, "")
}
