package layering

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City  string
	Lines []string
}

type opaqueValue struct {
	Name string
	note string
}

func TestCloneDeepCopiesContainers(t *testing.T) {
	src := map[string]any{
		"tags":    []string{"a", "b"},
		"address": &address{City: "Lisbon", Lines: []string{"1"}},
		"nested":  map[string]int{"x": 1},
	}

	out := Clone(src)
	out["tags"].([]string)[0] = "z"
	out["address"].(*address).Lines[0] = "2"
	out["nested"].(map[string]int)["x"] = 9

	assert.Equal(t, "a", src["tags"].([]string)[0])
	assert.Equal(t, "1", src["address"].(*address).Lines[0])
	assert.Equal(t, 1, src["nested"].(map[string]int)["x"])
}

func TestCloneKeepsOpaqueValues(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, now.Equal(Clone(now)))

	ov := &opaqueValue{Name: "n", note: "kept"}
	out := Clone(ov)
	assert.Same(t, ov, out)

	v := Clone(opaqueValue{Name: "n", note: "kept"})
	assert.Equal(t, "kept", v.note)
}

type node struct {
	Name string
	Next *node
}

func TestCloneSelfReferentialValues(t *testing.T) {
	m := map[string]any{"city": "Lisbon"}
	m["self"] = m

	out := Clone(m)
	out["city"] = "Porto"
	assert.Equal(t, "Lisbon", m["city"])
	inner := out["self"].(map[string]any)
	assert.Equal(t, reflect.ValueOf(out).Pointer(), reflect.ValueOf(inner).Pointer())

	ring := &node{Name: "a"}
	ring.Next = &node{Name: "b", Next: ring}
	copied := Clone(ring)
	assert.NotSame(t, ring, copied)
	assert.Same(t, copied, copied.Next.Next)
	assert.Equal(t, "b", copied.Next.Name)
}

func TestCloneKeepsSharedContainersShared(t *testing.T) {
	tags := []string{"a"}
	out := Clone(map[string]any{"x": tags, "y": tags})
	out["x"].([]string)[0] = "z"
	assert.Equal(t, "z", out["y"].([]string)[0])
	assert.Equal(t, "a", tags[0])
}

func TestCloneNil(t *testing.T) {
	var value any
	assert.Nil(t, Clone(value))
	var m map[string]any
	assert.Nil(t, Clone(m))
}

func TestTableReadThrough(t *testing.T) {
	root := NewTable[string](nil, nil)
	child := NewTable(root, nil)

	root.Set("a", "root")
	got, ok := child.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "root", got)
	assert.False(t, child.HasLocal("a"))

	_, ok = child.Lookup("missing")
	assert.False(t, ok)
	assert.False(t, child.HasLocal("missing"))

	child.Set("a", "child")
	assert.Equal(t, "child", child.Get("a"))
	assert.Equal(t, "root", root.Get("a"))

	child.Delete("a")
	assert.Equal(t, "root", child.Get("a"))
}

func TestTableBorrowCachesFirstRead(t *testing.T) {
	root := NewTable[int](nil, nil)
	root.Set("n", 1)

	calls := 0
	child := NewTable(root, func(v int) int {
		calls++
		return v * 10
	})

	assert.Equal(t, 10, child.Get("n"))
	assert.Equal(t, 10, child.Get("n"))
	assert.Equal(t, 1, calls)
	assert.True(t, child.HasLocal("n"))

	_, ok := child.Lookup("missing")
	assert.False(t, ok)
	assert.True(t, child.HasLocal("missing"))
	_, found := child.Local("missing")
	assert.False(t, found)
	assert.Equal(t, []string{"n"}, child.Keys())
}

func TestTableBorrowChainsThroughLevels(t *testing.T) {
	root := NewTable[string](nil, nil)
	root.Set("k", "v")
	mid := NewTable(root, func(v string) string { return v + "+mid" })
	leaf := NewTable(mid, func(v string) string { return v + "+leaf" })

	assert.Equal(t, "v+mid+leaf", leaf.Get("k"))
	assert.Equal(t, "v+mid", mid.Get("k"))
	assert.Equal(t, 2, leaf.Depth())
	assert.Same(t, mid, leaf.Parent())
}
