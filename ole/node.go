package ole

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// Node is a generic XML element. OLE responses are read by searching this tree
// rather than through fixed struct paths because elements of interest may
// appear at any depth.
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []Node     `xml:",any"`
}

var ErrNoXml = errors.New("response contains no XML")

// Parse decodes buf, honouring a non UTF-8 encoding declaration such as ISO-8859-1.
func Parse(buf []byte) (*Node, error) {
	var root Node
	decoder := xml.NewDecoder(bytes.NewReader(buf))
	decoder.CharsetReader = charsetReader
	if err := decoder.Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported XML encoding: %s", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// ParseLenient parses the XML found between the first '<' and the last '>'
// of buf. The circulation service surrounds write responses with extra text.
func ParseLenient(buf []byte) (*Node, error) {
	start := bytes.IndexByte(buf, '<')
	end := bytes.LastIndexByte(buf, '>')
	if start < 0 || end < start {
		return nil, ErrNoXml
	}
	return Parse(buf[start : end+1])
}

// matches reports whether n has the given name. An empty space matches any namespace.
func (n *Node) matches(space, local string) bool {
	return n.XMLName.Local == local && (space == "" || n.XMLName.Space == space)
}

// FindAll returns n and all its descendants with the given name, in document order.
func (n *Node) FindAll(space, local string) []*Node {
	var found []*Node
	n.walk(func(c *Node) {
		if c.matches(space, local) {
			found = append(found, c)
		}
	})
	return found
}

// Find returns the first node that FindAll would return, or nil.
func (n *Node) Find(space, local string) *Node {
	found := n.FindAll(space, local)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for i := range n.Nodes {
		n.Nodes[i].walk(fn)
	}
}

// Child returns the first direct child with the given name, or nil.
func (n *Node) Child(space, local string) *Node {
	if n == nil {
		return nil
	}
	for i := range n.Nodes {
		if n.Nodes[i].matches(space, local) {
			return &n.Nodes[i]
		}
	}
	return nil
}

// Path follows a chain of direct children, ignoring namespaces.
func (n *Node) Path(names ...string) *Node {
	cur := n
	for _, name := range names {
		cur = cur.Child("", name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Text returns the trimmed character data of n, or "" for a nil node.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Content)
}

// ChildText is shorthand for Path(names...).Text().
func (n *Node) ChildText(names ...string) string {
	return n.Path(names...).Text()
}
