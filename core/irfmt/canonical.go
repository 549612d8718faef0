// Package irfmt serializes IR trees.
//
// The canonical form is a flat, tagged node struct. Encoded with canonical
// CBOR it gives byte-stable output, so two structurally equal trees always
// produce the same bytes and the same Digest. The same struct backs the
// JSON form printed by `markerml ir --format json`.
package irfmt

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/aledsdavies/markerml/core/invariant"
	"github.com/aledsdavies/markerml/core/ir"
)

// Version is the canonical format version.
const Version uint8 = 1

// ErrVersion is returned when decoding a document of another format version.
var ErrVersion = errors.New("unsupported canonical IR version")

// CanonicalDocument is the encoded root.
type CanonicalDocument struct {
	Version uint8         `cbor:"version" json:"version"`
	Root    CanonicalNode `cbor:"root" json:"root"`
}

// CanonicalNode is a union of every IR variant. Type selects which fields
// are meaningful; the rest stay zero and are omitted.
type CanonicalNode struct {
	Type string `cbor:"type" json:"type"`

	// box
	Orientation string `cbor:"orientation,omitempty" json:"orientation,omitempty"`
	XAlign      string `cbor:"x_align,omitempty" json:"x_align,omitempty"`
	YAlign      string `cbor:"y_align,omitempty" json:"y_align,omitempty"`

	// text, header, paragraph
	Content string `cbor:"content,omitempty" json:"content,omitempty"`

	// image, link
	URL  string `cbor:"url,omitempty" json:"url,omitempty"`
	Name string `cbor:"name,omitempty" json:"name,omitempty"`

	Ordered bool   `cbor:"ordered,omitempty" json:"ordered,omitempty"`
	Level   int64  `cbor:"level,omitempty" json:"level,omitempty"`
	Title   string `cbor:"title,omitempty" json:"title,omitempty"`

	// box children, list items, page children
	Children []CanonicalNode `cbor:"children,omitempty" json:"children,omitempty"`
}

// Canonicalize converts n into canonical form.
func Canonicalize(n ir.Node) CanonicalNode {
	invariant.NotNil(n, "node")

	cn := CanonicalNode{Type: string(n.Kind())}
	switch n := n.(type) {
	case *ir.Box:
		cn.Orientation = string(n.Orientation)
		cn.XAlign = string(n.XAlign)
		cn.YAlign = string(n.YAlign)
	case *ir.Text:
		cn.Content = n.Content
	case *ir.Image:
		cn.URL = n.URL
	case *ir.Link:
		cn.URL = n.URL
		cn.Name = n.Name
	case *ir.List:
		cn.Ordered = n.Ordered
	case *ir.Header:
		cn.Level = n.Level
		cn.Content = n.Content
	case *ir.Paragraph:
		cn.Content = n.Content
	case *ir.Page:
		cn.Title = n.Title
	default:
		invariant.Unreachable("unknown IR node %T", n)
	}

	for _, child := range ir.Children(n) {
		cn.Children = append(cn.Children, Canonicalize(child))
	}
	return cn
}

// Node converts a canonical node back into IR.
func (cn CanonicalNode) Node() (ir.Node, error) {
	kids := make([]ir.Node, 0, len(cn.Children))
	for i, c := range cn.Children {
		n, err := c.Node()
		if err != nil {
			return nil, fmt.Errorf("%s child %d: %w", cn.Type, i, err)
		}
		kids = append(kids, n)
	}
	if len(kids) == 0 {
		kids = nil
	}

	var leaf ir.Node
	switch ir.Kind(cn.Type) {
	case ir.KindBox:
		x, xok := ir.ParseAlign(cn.XAlign)
		y, yok := ir.ParseAlign(cn.YAlign)
		if !xok || !yok {
			return nil, fmt.Errorf("box has invalid alignment %q/%q", cn.XAlign, cn.YAlign)
		}
		o := ir.Orientation(cn.Orientation)
		if o != ir.Vertical && o != ir.Horizontal {
			return nil, fmt.Errorf("box has invalid orientation %q", cn.Orientation)
		}
		return &ir.Box{Orientation: o, XAlign: x, YAlign: y, Children: kids}, nil
	case ir.KindList:
		return &ir.List{Ordered: cn.Ordered, Items: kids}, nil
	case ir.KindPage:
		return &ir.Page{Title: cn.Title, Children: kids}, nil
	case ir.KindText:
		leaf = &ir.Text{Content: cn.Content}
	case ir.KindImage:
		leaf = &ir.Image{URL: cn.URL}
	case ir.KindLink:
		leaf = &ir.Link{URL: cn.URL, Name: cn.Name}
	case ir.KindHeader:
		leaf = &ir.Header{Level: cn.Level, Content: cn.Content}
	case ir.KindParagraph:
		leaf = &ir.Paragraph{Content: cn.Content}
	default:
		return nil, fmt.Errorf("unknown node type %q", cn.Type)
	}
	if kids != nil {
		return nil, fmt.Errorf("%s node cannot have children", cn.Type)
	}
	return leaf, nil
}

// Marshal produces the deterministic CBOR encoding of n.
func Marshal(n ir.Node) ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	doc := CanonicalDocument{Version: Version, Root: Canonicalize(n)}
	data, err := encMode.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a tree written by Marshal.
func Unmarshal(data []byte) (ir.Node, error) {
	var doc CanonicalDocument
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("CBOR decoding failed: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, doc.Version)
	}
	return doc.Root.Node()
}

// MarshalJSON renders n as indented JSON in canonical form.
func MarshalJSON(n ir.Node) ([]byte, error) {
	doc := CanonicalDocument{Version: Version, Root: Canonicalize(n)}
	return json.MarshalIndent(doc, "", "  ")
}

// Digest returns the BLAKE2b-256 hash of n's canonical encoding, formatted
// as "blake2b:<hex>".
func Digest(n ir.Node) (string, error) {
	data, err := Marshal(n)
	if err != nil {
		return "", fmt.Errorf("failed to serialize IR for digest: %w", err)
	}
	return fmt.Sprintf("blake2b:%x", blake2b.Sum256(data)), nil
}
