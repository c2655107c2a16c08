package ownership

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// TextKey holds an element's character data when the element also has
// attributes or child elements.
const TextKey = "text"

// Tree is a generic object graph decoded from XML. Values are
// map[string]any for elements with attributes or children, []any for
// repeated elements and string for text-only elements.
type Tree = map[string]any

type frame struct {
	name     string
	node     Tree
	text     strings.Builder
	children bool
}

// decodeTree parses XML into a Tree keyed by the root element name.
func decodeTree(data []byte) (Tree, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	// Archive documents sometimes declare ISO-8859-1 or windows-1252.
	dec.CharsetReader = charset.NewReaderLabel

	var stack []*frame
	var root Tree

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			f := &frame{name: t.Name.Local, node: Tree{}}
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
					continue
				}
				f.node[attr.Name.Local] = attr.Value
			}
			if len(stack) > 0 {
				stack[len(stack)-1].children = true
			}
			stack = append(stack, f)

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end element %s", t.Name.Local)
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			value := f.value()
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("multiple root elements")
				}
				root = Tree{f.name: value}
				continue
			}
			appendChild(stack[len(stack)-1].node, f.name, value)
		}
	}

	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}

// value collapses a finished element into its tree value.
func (f *frame) value() any {
	text := strings.TrimSpace(f.text.String())
	if len(f.node) == 0 && !f.children {
		return text
	}
	if text != "" {
		f.node[TextKey] = text
	}
	return f.node
}

// appendChild adds a child value, turning repeated names into a list.
func appendChild(parent Tree, name string, value any) {
	existing, ok := parent[name]
	if !ok {
		parent[name] = value
		return
	}
	if list, isList := existing.([]any); isList {
		parent[name] = append(list, value)
		return
	}
	parent[name] = []any{existing, value}
}
