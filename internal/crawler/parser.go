package crawler

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// skippedSchemes are href prefixes that never point at a crawlable page.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// Parser extracts anchors from HTML content.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains the information extracted from an HTML page.
type ParseResult struct {
	// Links contains the absolute URL of every <a href>, in document order.
	// Duplicates are kept.
	Links []string
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts its anchors.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links: make([]string, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	if n.Data != "a" {
		return
	}
	href, ok := getAttr(n, "href")
	if !ok {
		return
	}
	if resolved := p.resolveURL(href); resolved != "" {
		result.Links = append(result.Links, resolved)
	}
}

// resolveURL resolves href against the base URL per RFC 3986. A bare "#"
// resolves to the page itself. It returns "" for hrefs that are empty,
// malformed or not navigable.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return p.baseURL.ResolveReference(u).String()
}

// ExtractLinks returns the absolute URL of every anchor in body, resolved
// against baseURL, in document order. Malformed hrefs are skipped. An
// unparseable baseURL yields no links.
func ExtractLinks(body []byte, baseURL string) []string {
	parser, err := NewParser(baseURL)
	if err != nil {
		return []string{}
	}
	result, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return []string{}
	}
	return result.Links
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
