package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tsawler/pagemerge/internal/textnorm"
	"github.com/tsawler/pagemerge/model"
)

// HTML writes page as an HTML document. Every merged object becomes a
// <section> with its header as a heading and its children as paragraphs;
// boxes are kept in data attributes.
func HTML(w io.Writer, page model.Page) error {
	title := fmt.Sprintf("Page %d", page.Number)
	if page.DocumentID != "" {
		title = fmt.Sprintf("%s, page %d", page.DocumentID, page.Number)
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html, nil)
	doc.AppendChild(root)

	head := element(atom.Head, nil)
	head.AppendChild(element(atom.Meta, []html.Attribute{{Key: "charset", Val: "utf-8"}}))
	titleEl := element(atom.Title, nil)
	titleEl.AppendChild(text(title))
	head.AppendChild(titleEl)
	root.AppendChild(head)

	body := element(atom.Body, nil)
	root.AppendChild(body)

	article := element(atom.Article, []html.Attribute{
		{Key: "class", Val: "page"},
		{Key: "data-page-id", Val: page.ID},
		{Key: "data-page-number", Val: strconv.Itoa(page.Number)},
	})
	body.AppendChild(article)

	for _, o := range page.Objects {
		article.AppendChild(objectNode(o))
	}

	return html.Render(w, doc)
}

func objectNode(o model.MergedObject) *html.Node {
	section := element(atom.Section, []html.Attribute{
		{Key: "class", Val: "object " + cssClass(o.Class)},
		{Key: "id", Val: o.ID},
		{Key: "data-class", Val: o.Class.String()},
		{Key: "data-confidence", Val: strconv.FormatFloat(o.Confidence, 'f', -1, 64)},
		{Key: "data-box", Val: boxAttr(o.Box)},
	})

	if o.Header != nil {
		h := element(atom.H2, detectionAttrs(*o.Header))
		h.AppendChild(text(textnorm.Text(o.Header.Text)))
		section.AppendChild(h)
	}

	tag := atom.P
	if o.Class == model.ClassFigure || o.Class == model.ClassTable {
		tag = atom.Div
	}
	for _, c := range o.Children {
		n := element(tag, detectionAttrs(c))
		appendLines(n, textnorm.Text(c.Text))
		section.AppendChild(n)
	}
	return section
}

func detectionAttrs(d model.Detection) []html.Attribute {
	return []html.Attribute{
		{Key: "class", Val: cssClass(d.Class)},
		{Key: "data-detection", Val: strconv.Itoa(d.ID)},
		{Key: "data-box", Val: boxAttr(d.Box)},
	}
}

// appendLines adds s to n, turning newlines into <br> elements
func appendLines(n *html.Node, s string) {
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			n.AppendChild(element(atom.Br, nil))
		}
		if line != "" {
			n.AppendChild(text(line))
		}
	}
}

func element(a atom.Atom, attrs []html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// cssClass turns a class label into a CSS class name ("Section Header" ->
// "section-header")
func cssClass(c model.Class) string {
	return strings.ReplaceAll(strings.ToLower(c.String()), " ", "-")
}

func boxAttr(b model.Box) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return strings.Join([]string{f(b.X0), f(b.Y0), f(b.X1), f(b.Y1)}, ",")
}
