// Package pomtree provides an editable, print-faithful view of a descriptor
// document.
//
// A [Document] preserves the exact bytes of the source it was parsed from:
// printing an unmodified document reproduces its input byte for byte. On top
// of that it carries two kinds of out-of-band state:
//
//   - diagnostic markers, rendered inline as <!--~~(text)~~>--> comments
//     immediately before the element they belong to (the repositories marker
//     sits directly before the root element), and
//   - uuid-keyed attachments, an opaque side-table for derived models that
//     must survive edits without relying on node identity.
//
// Re-inserting a marker replaces the previous one, so marker computation is
// idempotent: parsing an annotated document and printing it again yields
// identical output.
package pomtree

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/pomstack/pkg/errors"
)

const (
	markerOpen  = "<!--~~("
	markerClose = ")~~>-->"
)

// Marker is a uuid-keyed attachment slot on a document. The value is opaque
// to this package; consumers match on its dynamic type.
type Marker struct {
	ID    uuid.UUID
	Value any
}

// Document is a parsed descriptor document plus its out-of-band state.
type Document struct {
	prolog      string // everything before the root element, markers stripped
	epilog      string // everything after the root element's close tag
	reposMarker string // repositories marker text, "" when absent
	hasRepos    bool

	// Root is the document's root element.
	Root *Element

	markers []Marker
}

// node is either a raw text fragment or a child element.
type node interface{ isNode() }

type rawNode string

func (rawNode) isNode() {}

// Element is a single element of the source tree. The open and close tags are
// kept as raw text so that printing reproduces the original formatting,
// attributes included.
type Element struct {
	// Name is the element's local name.
	Name string

	openRaw  string
	closeRaw string
	nodes    []node
	warnings []string
}

func (*Element) isNode() {}

// Parse decodes a descriptor document, separating inline markers from
// content. Marker comments directly before the root element become the
// repositories marker; marker comments before any other element become
// warnings on that element.
func Parse(data []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	doc := &Document{}
	var (
		prolog  strings.Builder
		epilog  strings.Builder
		stack   []*Element
		pending []string
		prev    int64
	)
	// Top-level tokens belong to the prolog until the root element closes and
	// to the epilog afterwards. The trailing newline of a typical descriptor
	// lands in the epilog.
	outer := func() *strings.Builder {
		if doc.Root != nil {
			return &epilog
		}
		return &prolog
	}

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "malformed document")
		}
		cur := dec.InputOffset()
		raw := string(data[prev:cur])
		prev = cur

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name.Local, openRaw: raw}
			if len(stack) == 0 {
				if doc.Root != nil {
					return nil, errors.New(errors.ErrCodeInvalidDocument, "document has multiple root elements")
				}
				el.warnings, pending = nil, nil
				doc.Root = el
			} else {
				el.warnings, pending = pending, nil
				parent := stack[len(stack)-1]
				parent.nodes = append(parent.nodes, el)
			}
			stack = append(stack, el)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.New(errors.ErrCodeInvalidDocument, "unbalanced close tag")
			}
			el := stack[len(stack)-1]
			// Marker comments not followed by an element are kept verbatim.
			for _, w := range pending {
				el.nodes = append(el.nodes, rawNode(markerOpen+w+markerClose))
			}
			pending = nil
			el.closeRaw = raw
			stack = stack[:len(stack)-1]

		case xml.Comment:
			if msg, ok := markerText(raw); ok {
				switch {
				case len(stack) == 0 && doc.Root == nil:
					doc.reposMarker = msg
					doc.hasRepos = true
				case len(stack) == 0:
					epilog.WriteString(raw)
				default:
					pending = append(pending, msg)
				}
				continue
			}
			if len(stack) == 0 {
				outer().WriteString(raw)
			} else {
				el := stack[len(stack)-1]
				el.nodes = append(el.nodes, rawNode(raw))
			}

		default:
			if len(stack) == 0 {
				outer().WriteString(raw)
			} else {
				el := stack[len(stack)-1]
				el.nodes = append(el.nodes, rawNode(raw))
			}
		}
	}

	if doc.Root == nil {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "document has no root element")
	}
	doc.prolog = prolog.String()
	doc.epilog = epilog.String()
	return doc, nil
}

// markerText extracts the message from a marker comment, if raw is one.
func markerText(raw string) (string, bool) {
	if strings.HasPrefix(raw, markerOpen) && strings.HasSuffix(raw, markerClose) {
		return raw[len(markerOpen) : len(raw)-len(markerClose)], true
	}
	return "", false
}

// Print renders the document back to bytes. An unmodified document prints
// byte-identically to its source.
func (d *Document) Print() []byte {
	var b bytes.Buffer
	b.WriteString(d.prolog)
	if d.hasRepos {
		b.WriteString(markerOpen + d.reposMarker + markerClose)
	}
	d.Root.print(&b)
	b.WriteString(d.epilog)
	return b.Bytes()
}

// SetRepositoriesMarker attaches the repositories diagnostic marker, replacing
// any existing one. The marker renders immediately before the root element
// with no intervening whitespace.
func (d *Document) SetRepositoriesMarker(text string) {
	d.reposMarker = text
	d.hasRepos = true
}

// RepositoriesMarker returns the current repositories marker text, if set.
func (d *Document) RepositoriesMarker() (string, bool) {
	return d.reposMarker, d.hasRepos
}

// UpsertMarker replaces the value of the first attachment whose value matches,
// or adds a new attachment under a fresh id. The marker id is stable across
// replacements, so derived state keyed by it survives edits.
func (d *Document) UpsertMarker(match func(value any) bool, value any) Marker {
	for i := range d.markers {
		if match(d.markers[i].Value) {
			d.markers[i].Value = value
			return d.markers[i]
		}
	}
	m := Marker{ID: uuid.New(), Value: value}
	d.markers = append(d.markers, m)
	return m
}

// FindMarker returns the value of the first attachment matching the
// predicate.
func (d *Document) FindMarker(match func(value any) bool) (any, bool) {
	for _, m := range d.markers {
		if match(m.Value) {
			return m.Value, true
		}
	}
	return nil, false
}

func (e *Element) print(b *bytes.Buffer) {
	for _, w := range e.warnings {
		b.WriteString(markerOpen + w + markerClose)
	}
	b.WriteString(e.openRaw)
	for _, n := range e.nodes {
		switch t := n.(type) {
		case rawNode:
			b.WriteString(string(t))
		case *Element:
			t.print(b)
		}
	}
	b.WriteString(e.closeRaw)
}

// Element returns the first child element with the given name, or nil.
func (e *Element) Element(name string) *Element {
	for _, n := range e.nodes {
		if el, ok := n.(*Element); ok && el.Name == name {
			return el
		}
	}
	return nil
}

// Elements returns all child elements with the given name, in document order.
func (e *Element) Elements(name string) []*Element {
	var out []*Element
	for _, n := range e.nodes {
		if el, ok := n.(*Element); ok && el.Name == name {
			out = append(out, el)
		}
	}
	return out
}

// Children returns all child elements in document order.
func (e *Element) Children() []*Element {
	var out []*Element
	for _, n := range e.nodes {
		if el, ok := n.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// Text returns the element's text content with surrounding whitespace
// trimmed.
func (e *Element) Text() string {
	var b strings.Builder
	for _, n := range e.nodes {
		if raw, ok := n.(rawNode); ok {
			b.WriteString(string(raw))
		}
	}
	return strings.TrimSpace(b.String())
}

// ChildText returns the text of the named child element. The boolean reports
// whether the child exists.
func (e *Element) ChildText(name string) (string, bool) {
	child := e.Element(name)
	if child == nil {
		return "", false
	}
	return child.Text(), true
}

// SetText replaces the element's content with the given text, preserving the
// element's tags. A self-closing element is expanded.
func (e *Element) SetText(text string) {
	if e.closeRaw == "" && strings.HasSuffix(e.openRaw, "/>") {
		e.openRaw = strings.TrimSuffix(e.openRaw, "/>") + ">"
		e.closeRaw = "</" + e.Name + ">"
	}
	e.nodes = []node{rawNode(text)}
}

// Warn attaches a warning marker to the element. Duplicate messages are
// ignored so that repeated reconciliation passes stay idempotent.
func (e *Element) Warn(message string) {
	for _, w := range e.warnings {
		if w == message {
			return
		}
	}
	e.warnings = append(e.warnings, message)
}

// Warnings returns the element's warning messages.
func (e *Element) Warnings() []string {
	return e.warnings
}
