package parser

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Markup that never belongs in an archived body: active content, embeds and
// the excerpt-cut markers the platform leaves around "read more" sections.
const chrome = "script, style, iframe, noscript, div.lj-cut, span.lj-cut, lj-cut, a[name^='cutid']"

var continuationLabels = []string{"Read more", "Читать дальше"}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true,
	"figure": true, "footer": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tr": true, "ul": true,
}

// clean removes navigation chrome from the content container in place.
func clean(content *goquery.Selection) {
	content.Find(chrome).Remove()

	content.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		text := a.Text()
		for _, label := range continuationLabels {
			if strings.Contains(text, label) {
				return true
			}
		}
		return false
	}).Remove()
}

// extractBody cleans the content container and renders it in the requested
// format. A missing container yields an empty body.
func extractBody(doc *goquery.Document, format BodyFormat) (string, error) {
	content, _, ok := contents.First(doc.Selection)
	if !ok {
		return "", nil
	}

	content = content.First()
	clean(content)

	if format == BodyMarkdown {
		inner, err := content.Html()
		if err != nil {
			return "", err
		}

		converter := md.NewConverter("", true, nil)
		out, err := converter.ConvertString(inner)
		if err != nil {
			return "", err
		}

		return strings.TrimSpace(out), nil
	}

	return flatten(content.Nodes[0]), nil
}

// flatten renders the text of n as paragraphs separated by a blank line.
// Block elements and doubled <br> end a paragraph; a single <br> is a line
// break inside one.
func flatten(n *html.Node) string {
	f := &flattener{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		f.walk(c)
	}
	f.endParagraph()

	return strings.Join(f.paragraphs, "\n\n")
}

type flattener struct {
	paragraphs []string
	lines      []string
	line       strings.Builder
	breaks     int
}

func (f *flattener) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		f.line.WriteString(n.Data)
		if strings.TrimSpace(n.Data) != "" {
			f.breaks = 0
		}
	case html.ElementNode:
		if n.Data == "br" {
			f.endLine()
			f.breaks++
			if f.breaks >= 2 {
				f.endParagraph()
			}
			return
		}

		block := blockElements[n.Data]
		if block {
			f.endParagraph()
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f.walk(c)
		}

		if block {
			f.endParagraph()
		}
	}
}

func (f *flattener) endLine() {
	l := collapse(f.line.String())
	f.line.Reset()

	if l != "" {
		f.lines = append(f.lines, l)
	}
}

func (f *flattener) endParagraph() {
	f.endLine()

	if len(f.lines) > 0 {
		f.paragraphs = append(f.paragraphs, strings.Join(f.lines, "\n"))
		f.lines = nil
	}

	f.breaks = 0
}
