/*******************************************************************************
 * Copyright (c) 2026 The Francis Crick Institute.
 *
 * Authors:
 *	- Chris Cheshire <chris.cheshire@crick.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package runinfo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	attrPrefix = "@"
	textKey    = "#text"
)

// Document is the generic tree form of a parsed XML document: element names
// map to child nodes, attributes are keyed with a "@" prefix, repeated child
// elements collapse to a sequence, and text-only elements become plain
// strings. Instrument software nests the interesting elements at varying
// depths, so lookups are done by key search rather than fixed paths.
type Document map[string]any

// ParseDocument parses XML text in to a Document. Returns an error wrapping
// ErrMalformedDocument if the text is not well-formed.
func ParseDocument(data []byte) (Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	root, name, err := decodeRoot(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedDocument, err)
	}

	if err := drain(dec); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedDocument, err)
	}

	return Document{name: root}, nil
}

func decodeRoot(dec *xml.Decoder) (any, string, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, "", err
		}

		if start, ok := tok.(xml.StartElement); ok {
			node, err := decodeElement(dec, start)

			return node, start.Name.Local, err
		}
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	node := make(map[string]any)

	for _, attr := range start.Attr {
		node[attrPrefix+attr.Name.Local] = attr.Value
	}

	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}

			appendChild(node, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return finishElement(node, text.String()), nil
		}
	}
}

// finishElement reduces a text-only element to its string value; elements
// with attributes or children keep any non-blank text under "#text".
func finishElement(node map[string]any, text string) any {
	text = strings.TrimSpace(text)

	if len(node) == 0 {
		return text
	}

	if text != "" {
		node[textKey] = text
	}

	return node
}

func appendChild(node map[string]any, name string, child any) {
	existing, ok := node[name]
	if !ok {
		node[name] = child

		return
	}

	if seq, ok := existing.([]any); ok {
		node[name] = append(seq, child)

		return
	}

	node[name] = []any{existing, child}
}

// drain consumes tokens after the root element. The decoder itself tolerates
// trailing content, but a document with anything except whitespace after the
// root is not well-formed.
func drain(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			return errTrailingContent
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return errTrailingContent
			}
		}
	}
}

// FindKey returns every value stored under the given key anywhere in the
// node, found by depth-first traversal over both mapping and sequence nodes.
// Mapping nodes are visited in sorted key order, so results are
// deterministic. A nil node or an empty key is an error.
func FindKey(node any, key string) ([]any, error) {
	if node == nil {
		return nil, ErrNoDocument
	}

	if key == "" {
		return nil, ErrEmptyKey
	}

	return findKey(node, key, nil), nil
}

func findKey(node any, key string, acc []any) []any {
	switch t := node.(type) {
	case Document:
		return findKey(map[string]any(t), key, acc)
	case map[string]any:
		if v, ok := t[key]; ok {
			acc = append(acc, v)
		}

		for _, k := range sortedKeys(t) {
			acc = findKey(t[k], key, acc)
		}
	case []any:
		for _, item := range t {
			acc = findKey(item, key, acc)
		}
	}

	return acc
}

func sortedKeys(node map[string]any) []string {
	keys := make([]string, 0, len(node))

	for k := range node {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// FindKey searches this document. See the package-level FindKey.
func (d Document) FindKey(key string) ([]any, error) {
	return FindKey(map[string]any(d), key)
}

// FindFirst returns the first value stored under the given key, or an error
// wrapping ErrKeyNotFound.
func (d Document) FindFirst(key string) (any, error) {
	matches, err := d.FindKey(key)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return matches[0], nil
}

// stringValue extracts the string form of a node: plain strings are returned
// as-is, and mapping nodes yield their element text.
func stringValue(node any) (string, bool) {
	switch t := node.(type) {
	case string:
		return t, true
	case map[string]any:
		if text, ok := t[textKey].(string); ok {
			return text, true
		}
	}

	return "", false
}
