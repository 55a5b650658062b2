package research

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// strippedTags are removed before rendering a page body when no article or
// main region exists.
var strippedTags = map[string]bool{
	"nav": true, "header": true, "footer": true, "aside": true,
	"script": true, "style": true, "noscript": true, "iframe": true,
	"form": true, "button": true,
}

// mainContent extracts the page title and the HTML of its main content
// region. Used when readability declines the page.
func mainContent(body []byte) (title, content string, err error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("parse HTML: %w", err)
	}

	title = findTitle(doc)

	for _, tag := range []string{"article", "main"} {
		if node := findElement(doc, tag); node != nil {
			return title, renderNode(node), nil
		}
	}

	stripUnwanted(doc)
	if node := findElement(doc, "body"); node != nil {
		return title, renderNode(node), nil
	}
	return title, string(body), nil
}

func findTitle(doc *html.Node) string {
	node := findElement(doc, "title")
	if node == nil || node.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(node.FirstChild.Data)
}

// findElement returns the first element with the given tag name.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// stripUnwanted removes navigation and scripting elements in place.
func stripUnwanted(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && strippedTags[c.Data] {
			n.RemoveChild(c)
			continue
		}
		stripUnwanted(c)
	}
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}
