package htmlutil

import (
	"bytes"
	"strings"

	"bvpscraper/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// lineBreaking are the elements that start a new visual line.
var lineBreaking = map[atom.Atom]bool{
	atom.Br:  true,
	atom.Div: true,
	atom.P:   true,
	atom.Li:  true,
	atom.Tr:  true,
}

func getLinesRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		buffer.WriteString(node.Data)
		return
	case html.ElementNode:
		if lineBreaking[node.DataAtom] {
			buffer.WriteByte('\n')
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getLinesRecursive(child, buffer)
	}
	if node.Type == html.ElementNode && node.DataAtom != atom.Br && lineBreaking[node.DataAtom] {
		buffer.WriteByte('\n')
	}
}

// Find returns the first match of selector under sel, an empty selector
// returns sel itself.
func Find(sel *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" {
		return sel.First()
	}
	return sel.Find(selector).First()
}

// Text returns the normalized text of the first match of selector, nil if
// nothing matches or the text is empty.
func Text(sel *goquery.Selection, selector string) *string {
	found := Find(sel, selector)
	if found.Length() == 0 {
		return nil
	}
	text := textutil.Normalize(found.Text())
	if text == "" {
		return nil
	}
	return &text
}

// Lines returns the text of the first match of selector split at line breaks
// (<br>, block elements and newlines), every line is normalized and empty
// lines are dropped.
func Lines(sel *goquery.Selection, selector string) []string {
	found := Find(sel, selector)
	if found.Length() == 0 {
		return nil
	}

	var buffer bytes.Buffer
	for child := found.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
		getLinesRecursive(child, &buffer)
	}

	var lines []string
	for _, line := range strings.Split(buffer.String(), "\n") {
		line = textutil.Normalize(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Attr returns the attribute `name` of the first match of selector.
func Attr(sel *goquery.Selection, selector, name string) *string {
	found := Find(sel, selector)
	if found.Length() == 0 {
		return nil
	}
	value, ok := found.Attr(name)
	if !ok {
		return nil
	}
	return &value
}

// GradeCodeIn maps the first `is-<code>` token of a class attribute to a
// grade number: ippan is 5, then the SG, G1, G2 and G3 prefixes are 1
// through 4. Any other first code yields nil.
func GradeCodeIn(class string) *int {
	for _, token := range strings.Fields(class) {
		code, ok := strings.CutPrefix(token, "is-")
		if !ok {
			continue
		}
		var grade int
		switch {
		case code == "ippan":
			grade = 5
		case strings.HasPrefix(code, "SG"):
			grade = 1
		case strings.HasPrefix(code, "G1"):
			grade = 2
		case strings.HasPrefix(code, "G2"):
			grade = 3
		case strings.HasPrefix(code, "G3"):
			grade = 4
		default:
			return nil
		}
		return &grade
	}
	return nil
}

// GradeCode reads the class attribute of the first match of selector and
// maps it with GradeCodeIn.
func GradeCode(sel *goquery.Selection, selector string) *int {
	class := Attr(sel, selector, "class")
	if class == nil {
		return nil
	}
	return GradeCodeIn(*class)
}

// ParseOdds parses a single odds value, placeholders like "取消" or "欠場"
// yield nil.
func ParseOdds(text string) *float64 {
	f, ok := textutil.ParseFloat(text)
	if !ok {
		return nil
	}
	return &f
}

// Odds parses the text of the first match of selector with ParseOdds.
func Odds(sel *goquery.Selection, selector string) *float64 {
	text := Text(sel, selector)
	if text == nil {
		return nil
	}
	return ParseOdds(*text)
}

// OddsRange is a lower/upper odds pair, both bounds are either set or nil.
type OddsRange struct {
	Lower *float64 `json:"lower"`
	Upper *float64 `json:"upper"`
}

// ParseOddsRange splits text on its single "-", a text without exactly one
// "-" or with a half that is not a number yields an empty range.
func ParseOddsRange(text string) OddsRange {
	parts := strings.Split(textutil.Normalize(text), "-")
	if len(parts) != 2 {
		return OddsRange{}
	}
	lower, lok := textutil.ParseFloat(parts[0])
	upper, uok := textutil.ParseFloat(parts[1])
	if !lok || !uok {
		return OddsRange{}
	}
	return OddsRange{Lower: &lower, Upper: &upper}
}

// GetOddsRange parses the text of the first match of selector with
// ParseOddsRange.
func GetOddsRange(sel *goquery.Selection, selector string) OddsRange {
	text := Text(sel, selector)
	if text == nil {
		return OddsRange{}
	}
	return ParseOddsRange(*text)
}
