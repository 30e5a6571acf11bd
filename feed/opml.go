package feed

import (
	"github.com/gilliek/go-opml/opml"
	"github.com/tmshv/untrack/utils"
)

// CleanOPML rewrites the xmlUrl, htmlUrl and url attributes of every outline.
// Attributes that cannot be parsed or lose no parameter are kept.
func CleanOPML(data []byte, filters []string) ([]byte, int, error) {
	doc, err := opml.NewOPML(data)
	if err != nil {
		return nil, 0, err
	}

	n := cleanOutlines(doc.Body.Outlines, filters)

	out, err := doc.XML()
	if err != nil {
		return nil, 0, err
	}
	return []byte(out), n, nil
}

func cleanOutlines(outlines []opml.Outline, filters []string) int {
	n := 0
	for i := range outlines {
		o := &outlines[i]
		for _, attr := range []*string{&o.XMLURL, &o.HTMLURL, &o.URL} {
			if *attr == "" {
				continue
			}
			cleaned, removed, err := utils.FilterQueryCount(*attr, filters)
			if err != nil || removed == 0 {
				continue
			}
			*attr = cleaned
			n++
		}
		n += cleanOutlines(o.Outlines, filters)
	}
	return n
}
