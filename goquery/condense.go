package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/larder"
	"golang.org/x/net/html"
)

// noiseSelector matches elements that never hold search results.
const noiseSelector = "script, style, noscript, svg, iframe, link, meta, head, template"

// keptAttributes are the attributes a selector can reasonably target.
var keptAttributes = map[string]bool{
	"class": true,
	"id":    true,
	"href":  true,
	"src":   true,
	"role":  true,
}

// Condense strips a page down to the markup that matters when choosing a
// result selector: noise elements and comments are dropped, attributes other
// than class, id, href, src and role are removed, and the output is cut to at
// most maxBytes. A maxBytes of zero disables the cap.
func Condense(page string, maxBytes int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", err
	}

	doc.Find(noiseSelector).Remove()

	for _, root := range doc.Nodes {
		stripNode(root)
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	out, err := body.Html()
	if err != nil {
		return "", err
	}
	out = strings.Join(strings.Fields(out), " ")

	if maxBytes > 0 && len(out) > maxBytes {
		out = strings.ToValidUTF8(out[:maxBytes], "")
	}
	return out, nil
}

// stripNode removes comments and unneeded attributes below n.
func stripNode(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
			c = next
			continue
		}
		if c.Type == html.ElementNode {
			attrs := c.Attr[:0]
			for _, a := range c.Attr {
				if keptAttributes[a.Key] {
					attrs = append(attrs, a)
				}
			}
			c.Attr = attrs
		}
		stripNode(c)
		c = next
	}
}

// Ensure Condenser implements larder.SampleCondenser at compile time.
var _ larder.SampleCondenser = Condenser{}

// Condenser implements larder.SampleCondenser with Condense.
type Condenser struct{}

// Condense implements larder.SampleCondenser.
func (Condenser) Condense(html string, maxBytes int) (string, error) {
	return Condense(html, maxBytes)
}
