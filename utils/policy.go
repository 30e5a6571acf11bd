package utils

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// AllowedTracking toggles which trackers Untrack leaves in place. The zero
// value allows none of them.
type AllowedTracking struct {
	// Urchin Tracking Module
	UTM bool `json:"utm"`
	// Google Click Identifier
	GCLID bool `json:"gclid"`
	// Google Ads
	GCLSrc bool `json:"gclsrc"`
	// DoubleClick click identifier, now Google
	DCLID bool `json:"dclid"`
	// Facebook click identifier
	FBCLID bool `json:"fbclid"`
	// Microsoft Bing Ads click identifier
	MSCKLID bool `json:"mscklid"`
	// zanox click identifier, now Awin
	ZANPID bool `json:"zanpid"`
}

type Tracker struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
	Family string `json:"family"`
}

var trackers = []Tracker{
	{Name: "utm", Prefix: "utm_", Family: "Urchin Tracking Module"},
	{Name: "gclid", Prefix: "gclid", Family: "Google Click Identifier"},
	{Name: "gclsrc", Prefix: "gclsrc", Family: "Google Ads source tag"},
	{Name: "dclid", Prefix: "dclid", Family: "DoubleClick click identifier"},
	{Name: "fbclid", Prefix: "fbclid", Family: "Facebook click identifier"},
	{Name: "mscklid", Prefix: "mscklid", Family: "Microsoft Bing Ads click identifier"},
	{Name: "zanpid", Prefix: "zanpid", Family: "Awin (zanox) click identifier"},
}

// Trackers returns the known tracker families in filter order.
func Trackers() []Tracker {
	result := make([]Tracker, len(trackers))
	copy(result, trackers)
	return result
}

func (a AllowedTracking) flags() []bool {
	return []bool{a.UTM, a.GCLID, a.GCLSrc, a.DCLID, a.FBCLID, a.MSCKLID, a.ZANPID}
}

func (a *AllowedTracking) allow(name string) bool {
	switch name {
	case "utm":
		a.UTM = true
	case "gclid":
		a.GCLID = true
	case "gclsrc":
		a.GCLSrc = true
	case "dclid":
		a.DCLID = true
	case "fbclid":
		a.FBCLID = true
	case "mscklid":
		a.MSCKLID = true
	case "zanpid":
		a.ZANPID = true
	default:
		return false
	}
	return true
}

// Filters returns the prefixes of every tracker that is not allowed.
func (a AllowedTracking) Filters() []string {
	filters := make([]string, 0, len(trackers))
	for i, allowed := range a.flags() {
		if !allowed {
			filters = append(filters, trackers[i].Prefix)
		}
	}
	return filters
}

// ParseAllowed builds a policy from tracker names such as "gclid". Names are
// case-insensitive, empty ones are skipped.
func ParseAllowed(names []string) (AllowedTracking, error) {
	var allowed AllowedTracking
	var result *multierror.Error
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if !allowed.allow(name) {
			result = multierror.Append(result, fmt.Errorf("unknown tracker %q", name))
		}
	}
	return allowed, result.ErrorOrNil()
}

// Untrack removes every tracking parameter not allowed by allowed.
func Untrack(rawURL string, allowed AllowedTracking) (string, error) {
	return FilterQuery(rawURL, allowed.Filters())
}
