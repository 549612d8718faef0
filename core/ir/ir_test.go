package ir_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/aledsdavies/markerml/core/ir"
)

func sampleTree() *ir.Page {
	return &ir.Page{
		Title: "t",
		Children: []ir.Node{
			&ir.Header{Level: 1, Content: "Title"},
			&ir.Box{
				Orientation: ir.Horizontal,
				XAlign:      ir.AlignStart,
				YAlign:      ir.AlignCenter,
				Children: []ir.Node{
					&ir.Text{Content: "a"},
					&ir.List{Items: []ir.Node{&ir.Paragraph{Content: "p"}}},
				},
			},
			&ir.Link{URL: "u", Name: "n"},
			&ir.Image{URL: "i.png"},
		},
	}
}

func TestWalkOrder(t *testing.T) {
	var kinds []ir.Kind
	ir.Walk(sampleTree(), func(n ir.Node) bool {
		kinds = append(kinds, n.Kind())
		return true
	})

	assert.Equal(t, []ir.Kind{
		ir.KindPage, ir.KindHeader, ir.KindBox, ir.KindText,
		ir.KindList, ir.KindParagraph, ir.KindLink, ir.KindImage,
	}, kinds)
}

func TestWalkSkipsChildren(t *testing.T) {
	var kinds []ir.Kind
	ir.Walk(sampleTree(), func(n ir.Node) bool {
		kinds = append(kinds, n.Kind())
		return n.Kind() != ir.KindBox
	})
	assert.NotContains(t, kinds, ir.KindText)
	assert.Contains(t, kinds, ir.KindLink)
}

func TestCount(t *testing.T) {
	assert.Equal(t, 8, ir.Count(sampleTree()))
	assert.Equal(t, 1, ir.Count(&ir.Text{Content: "x"}))
}

func TestClone(t *testing.T) {
	orig := sampleTree()
	got := ir.Clone(orig).(*ir.Page)

	if diff := cmp.Diff(orig, got); diff != "" {
		t.Errorf("clone mismatch (-want +got):\n%s", diff)
	}

	box := got.Children[1].(*ir.Box)
	box.Children[0].(*ir.Text).Content = "changed"
	box.Children[1].(*ir.List).Items = nil
	got.Children[0].(*ir.Header).Level = 3

	want := sampleTree()
	if diff := cmp.Diff(want, orig); diff != "" {
		t.Errorf("original changed through the clone (-want +got):\n%s", diff)
	}
	assert.Nil(t, ir.CloneAll(nil))
}

func TestParseAlign(t *testing.T) {
	a, ok := ir.ParseAlign("center")
	assert.True(t, ok)
	assert.Equal(t, ir.AlignCenter, a)

	_, ok = ir.ParseAlign("middle")
	assert.False(t, ok)
}
