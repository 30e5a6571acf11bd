package utils

import "github.com/PuerkitoBio/purell"

const normalizeFlags = purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagRemoveDefaultPort |
	purell.FlagRemoveEmptyPortSeparator |
	purell.FlagRemoveDotSegments

// Normalize canonicalizes scheme, host, port and dot segments of rawURL.
// Query parameters are neither reordered nor dropped.
func Normalize(rawURL string) (string, error) {
	return purell.NormalizeURLString(rawURL, normalizeFlags)
}
