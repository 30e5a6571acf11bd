package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmshv/untrack/utils"
)

const testOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
<head><title>Subscriptions</title></head>
<body>
<outline text="Blogs">
<outline text="One" type="rss" xmlUrl="https://one.example/feed.xml?utm_source=reader" htmlUrl="https://one.example/?fbclid=abc"/>
<outline text="Two" type="rss" xmlUrl="https://two.example/feed.xml?page=1" htmlUrl="https://two.example"/>
</outline>
</body>
</opml>`

func TestCleanOPML(t *testing.T) {
	out, n, err := CleanOPML([]byte(testOPML), utils.AllowedTracking{}.Filters())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s := string(out)
	assert.Contains(t, s, `https://one.example/feed.xml"`)
	assert.Contains(t, s, `https://one.example/"`)
	assert.Contains(t, s, `https://two.example/feed.xml?page=1"`)
	assert.Contains(t, s, `htmlUrl="https://two.example"`)
	assert.NotContains(t, s, "utm_source")
	assert.NotContains(t, s, "fbclid")
}

func TestCleanOPML_invalid(t *testing.T) {
	_, _, err := CleanOPML([]byte("<opml"), nil)
	assert.Error(t, err)
}
