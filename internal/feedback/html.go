package feedback

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ParseHTML extracts marks from a pasted board row. The game renders each
// guess letter as an element carrying class "letter" plus mark classes
// (absent, head, tail, start, end).
func ParseHTML(fragment string) (Result, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return Result{}, fmt.Errorf("parse board html: %w", err)
	}

	var marks []Mark
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			classes := classList(n)
			if _, ok := classes["letter"]; ok {
				letter := strings.ToLower(strings.TrimSpace(nodeText(n)))
				if len(letter) == 1 && letter[0] >= 'a' && letter[0] <= 'z' {
					m := Mark{Letter: letter[0]}
					if _, ok := classes["absent"]; ok {
						m.Absent = true
					}
					if _, ok := classes["head"]; ok {
						m.Head = true
					}
					if _, ok := classes["tail"]; ok {
						m.Tail = true
					}
					if _, ok := classes["misplaced"]; ok {
						m.Misplaced = true
					}
					if _, ok := classes["start"]; ok {
						m.Start = true
					}
					if _, ok := classes["end"]; ok {
						m.End = true
					}
					marks = append(marks, m)
				}
				return // letter cells do not nest
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(marks) == 0 {
		return Result{}, fmt.Errorf("no letter cells found in board html")
	}

	guess := make([]byte, len(marks))
	for i, m := range marks {
		guess[i] = m.Letter
	}
	return Result{Guess: string(guess), Marks: marks}, nil
}

// classList collects the element's classes into a set.
func classList(n *html.Node) map[string]struct{} {
	out := make(map[string]struct{})
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, cls := range strings.Fields(attr.Val) {
			out[cls] = struct{}{}
		}
	}
	return out
}

// nodeText concatenates the text content under a node.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
