package utils

import (
	"errors"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CleanLinks runs every absolute a[href] and img[src] of an HTML fragment
// through FilterQuery. Links that cannot be parsed or lose no parameter
// stay as they are.
// Everything except the rewritten tags is copied byte for byte. It returns
// the fragment and the number of changed attributes.
func CleanLinks(fragment string, filters []string) (string, int, error) {
	var b strings.Builder
	changed := 0

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", 0, err
			}
			if changed == 0 {
				return fragment, 0, nil
			}
			return b.String(), changed, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			raw := string(z.Raw())
			tok := z.Token()
			if cleanLinkAttr(&tok, filters) {
				b.WriteString(tok.String())
				changed++
				continue
			}
			b.WriteString(raw)
		default:
			b.Write(z.Raw())
		}
	}
}

func cleanLinkAttr(tok *html.Token, filters []string) bool {
	var key string
	switch tok.DataAtom {
	case atom.A:
		key = "href"
	case atom.Img:
		key = "src"
	default:
		return false
	}

	for i, attr := range tok.Attr {
		if attr.Namespace != "" || attr.Key != key {
			continue
		}
		cleaned, removed, err := FilterQueryCount(attr.Val, filters)
		if err != nil || removed == 0 {
			return false
		}
		tok.Attr[i].Val = cleaned
		return true
	}
	return false
}

// ToMarkdown converts an HTML fragment. The fragment is parsed in body
// context so leading head-only elements are not lifted out of it.
func ToMarkdown(fragment string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	converter := md.NewConverter("", true, nil)
	return converter.Convert(goquery.NewDocumentFromNode(body).Selection), nil
}
