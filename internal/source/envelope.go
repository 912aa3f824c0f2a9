// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html/charset"
)

// gatewayErrorRoot is the root element the public-data gateway returns in
// place of the API response when it rejects a request (bad key, quota).
const gatewayErrorRoot = "OpenAPI_ServiceResponse"

// Envelope describes the expected shape of one API response document.
// Paths are "/"-separated element names relative to the root element.
type Envelope struct {
	// Root is the expected root element name.
	Root string

	// CodePaths are tried in order; the first non-empty value is the result code.
	// When empty the response carries no result code.
	CodePaths []string

	// SuccessCodes lists the result codes that mean success.
	SuccessCodes []string

	// MessagePaths locate the human-readable result message.
	MessagePaths []string

	// ItemPath locates the item elements. "." makes the root itself the single item.
	ItemPath string
}

// xmlNode is a generic element tree used to validate a document before
// any of it is trusted.
type xmlNode struct {
	XMLName xml.Name
	Nodes   []xmlNode `xml:",any"`
	Text    string    `xml:",chardata"`
}

// find returns the nodes reached by following path from n.
func (n *xmlNode) find(path string) []*xmlNode {
	current := []*xmlNode{n}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." {
			continue
		}
		var next []*xmlNode
		for _, c := range current {
			for i := range c.Nodes {
				if c.Nodes[i].XMLName.Local == seg {
					next = append(next, &c.Nodes[i])
				}
			}
		}
		current = next
	}
	return current
}

// text returns the trimmed text of the first non-empty node at any of paths.
func (n *xmlNode) text(paths ...string) string {
	for _, p := range paths {
		for _, m := range n.find(p) {
			if v := strings.TrimSpace(m.Text); v != "" {
				return v
			}
		}
	}
	return ""
}

// flatten converts an item element into a RawItem.
func (n *xmlNode) flatten() RawItem {
	item := RawItem{}
	n.flattenInto(item, "")
	return item
}

func (n *xmlNode) flattenInto(item RawItem, prefix string) {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		key := prefix + c.XMLName.Local
		if len(c.Nodes) > 0 {
			c.flattenInto(item, key+"/")
			continue
		}
		v := strings.TrimSpace(c.Text)
		if v == "" {
			if _, ok := item[key]; !ok {
				item[key] = ""
			}
			continue
		}
		if prev := item[key]; prev != "" {
			v = prev + ", " + v
		}
		item[key] = v
	}
}

// Decode validates body against the envelope and returns its items. Any
// mismatch yields a *ProtocolError; an item element that appears once and
// one that repeats decode the same way.
func (e Envelope) Decode(source string, body []byte) ([]RawItem, error) {
	var root xmlNode
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&root); err != nil {
		return nil, &ProtocolError{Source: source, Message: "malformed XML", Err: err}
	}

	if name := root.XMLName.Local; name != e.Root {
		if name == gatewayErrorRoot {
			return nil, &ProtocolError{
				Source:  source,
				Code:    root.text("cmmMsgHeader/returnReasonCode"),
				Message: root.text("cmmMsgHeader/returnAuthMsg", "cmmMsgHeader/errMsg"),
			}
		}
		return nil, &ProtocolError{Source: source, Message: fmt.Sprintf("unexpected root element <%s>, want <%s>", name, e.Root)}
	}

	if len(e.CodePaths) > 0 {
		code := root.text(e.CodePaths...)
		if code == "" {
			return nil, &ProtocolError{Source: source, Message: "response has no result code"}
		}
		if !slices.Contains(e.SuccessCodes, code) {
			return nil, &ProtocolError{Source: source, Code: code, Message: root.text(e.MessagePaths...)}
		}
	}

	if e.ItemPath == "." {
		return []RawItem{root.flatten()}, nil
	}

	nodes := root.find(e.ItemPath)
	items := make([]RawItem, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, n.flatten())
	}
	return items, nil
}
