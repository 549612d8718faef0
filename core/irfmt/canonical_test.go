package irfmt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/markerml/core/ir"
)

func samplePage() *ir.Page {
	return &ir.Page{
		Title: "Home",
		Children: []ir.Node{
			&ir.Header{Level: 1, Content: "Welcome"},
			&ir.Box{
				Orientation: ir.Horizontal,
				XAlign:      ir.AlignCenter,
				YAlign:      ir.AlignEnd,
				Children: []ir.Node{
					&ir.Image{URL: "cat.png"},
					&ir.Paragraph{Content: "a cat"},
				},
			},
			&ir.List{Ordered: true, Items: []ir.Node{
				&ir.Link{URL: "https://example.com", Name: "example"},
				&ir.Text{Content: "plain"},
			}},
			&ir.List{},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	want := samplePage()

	data, err := Marshal(want)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	first, err := Marshal(samplePage())
	require.NoError(t, err)
	for range 10 {
		again, err := Marshal(samplePage())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDigest(t *testing.T) {
	d1, err := Digest(samplePage())
	require.NoError(t, err)
	d2, err := Digest(samplePage())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(d1, "blake2b:"), d1)
	assert.Len(t, d1, len("blake2b:")+64)
	assert.Equal(t, d1, d2)

	changed := samplePage()
	changed.Children[0].(*ir.Header).Level = 2
	d3, err := Digest(changed)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestDigestDistinguishesEmptyFromMissing(t *testing.T) {
	a, err := Digest(&ir.Text{Content: ""})
	require.NoError(t, err)
	b, err := Digest(&ir.Paragraph{Content: ""})
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "node type is part of the digest")
}

func TestUnmarshalErrors(t *testing.T) {
	encode := func(doc CanonicalDocument) []byte {
		data, err := cbor.Marshal(doc)
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "garbage",
			data: []byte{0xff, 0x00},
			want: "CBOR decoding failed",
		},
		{
			name: "future version",
			data: encode(CanonicalDocument{Version: 9, Root: CanonicalNode{Type: "text"}}),
			want: "unsupported canonical IR version: 9",
		},
		{
			name: "unknown type",
			data: encode(CanonicalDocument{Version: Version, Root: CanonicalNode{Type: "marquee"}}),
			want: `unknown node type "marquee"`,
		},
		{
			name: "leaf with children",
			data: encode(CanonicalDocument{Version: Version, Root: CanonicalNode{
				Type:     "text",
				Children: []CanonicalNode{{Type: "text"}},
			}}),
			want: "text node cannot have children",
		},
		{
			name: "bad alignment in nested box",
			data: encode(CanonicalDocument{Version: Version, Root: CanonicalNode{
				Type: "page",
				Children: []CanonicalNode{{
					Type: "box", Orientation: "vertical", XAlign: "left", YAlign: "start",
				}},
			}}),
			want: `page child 0: box has invalid alignment "left"/"start"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := MarshalJSON(&ir.Page{Children: []ir.Node{&ir.Header{Level: 2, Content: "Hi"}}})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	want := map[string]any{
		"version": float64(1),
		"root": map[string]any{
			"type": "page",
			"children": []any{
				map[string]any{"type": "header", "level": float64(2), "content": "Hi"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}
