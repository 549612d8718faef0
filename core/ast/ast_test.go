package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestModuleSplitsItems(t *testing.T) {
	def := &ComponentDefinition{Name: "card"}
	c1 := &Component{Name: ComponentName{Kind: NameIdent, Value: "box"}}
	c2 := &Component{Name: ComponentName{Kind: NameSymbol, Value: "@"}}
	mod := &Module{Items: []Item{c1, def, c2}}

	assert.Equal(t, []*Component{c1, c2}, mod.Components())
	assert.Equal(t, []*ComponentDefinition{def}, mod.Definitions())
}

func TestSpanJoin(t *testing.T) {
	a := Span{Start: Position{1, 5, 4}, End: Position{1, 9, 8}}
	b := Span{Start: Position{1, 1, 0}, End: Position{1, 7, 6}}

	want := Span{Start: Position{1, 1, 0}, End: Position{1, 9, 8}}
	if diff := cmp.Diff(want, a.Join(b)); diff != "" {
		t.Errorf("Join mismatch (-want +got):\n%s", diff)
	}
}

func TestIsLiteral(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"int", &IntValue{Value: 3}, true},
		{"bool", &BoolValue{Value: true}, true},
		{"plain string", &StringValue{Segments: []Segment{&LiteralSegment{Text: "a"}}}, true},
		{"interpolated string", &StringValue{Segments: []Segment{&VarSegment{Name: "x"}}}, false},
		{"var ref", &VarRef{Name: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLiteral(tt.value))
		})
	}
}

func TestSegmentsString(t *testing.T) {
	segs := []Segment{
		&LiteralSegment{Text: "Hello,"},
		&SpaceSegment{},
		&VarSegment{Name: "name"},
	}
	assert.Equal(t, "Hello, ${name}", SegmentsString(segs))
}

func TestTypeNames(t *testing.T) {
	assert.Equal(t, "slot[]", TypeSlotList.String())
	assert.True(t, TypeSlot.IsSlot())
	assert.False(t, TypeInt.IsSlot())
}
