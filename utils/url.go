package utils

import (
	"errors"
	"strings"

	whatwgerrors "github.com/nlnwa/whatwg-url/errors"
	whatwg "github.com/nlnwa/whatwg-url/url"
)

// FilterQuery removes every query parameter whose name starts with any of
// filters and returns the reserialized url.
//
// Names are matched after percent-decoding. A parse failure is returned as is.
func FilterQuery(rawURL string, filters []string) (string, error) {
	result, _, err := FilterQueryCount(rawURL, filters)
	return result, err
}

// FilterQueryCount is FilterQuery that also reports how many parameters
// were removed. Zero means the result differs from rawURL only by
// serialization.
func FilterQueryCount(rawURL string, filters []string) (string, int, error) {
	u, err := whatwg.Parse(rawURL)
	if err != nil {
		return "", 0, err
	}

	kept := make([]string, 0)
	removed := 0
	u.SearchParams().Iterate(func(pair *whatwg.NameValuePair) {
		if hasAnyPrefix(pair.Name, filters) {
			removed++
			return
		}
		kept = append(kept, pair.Name+"="+pair.Value)
	})

	query := strings.Join(kept, "&")
	if query == "" {
		u.SetSearch("")
	} else {
		// SetSearch drops one leading '?', so a name that itself starts
		// with '?' survives.
		u.SetSearch("?" + query)
	}

	return u.Href(false), removed, nil
}

// IsMalformedURL reports whether err came from the url parser.
func IsMalformedURL(err error) bool {
	var verr *whatwgerrors.ValidationError
	return errors.As(err, &verr)
}

func hasAnyPrefix(name string, filters []string) bool {
	for _, f := range filters {
		if strings.HasPrefix(name, f) {
			return true
		}
	}
	return false
}

func DropUtmMarkers(urlStr string) string {
	u, err := FilterQuery(urlStr, []string{"utm_"})
	if err != nil {
		return urlStr // return original URL in case of error
	}
	return u
}
