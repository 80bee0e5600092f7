package reflector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	inner string
}

type embedded struct {
	testStruct
	Extra string `json:"extra"`
}

func TestTypeInfo(t *testing.T) {
	ti := TypeInfoOf(testStruct{})
	require.Contains(t, ti.Name, "reflector.testStruct")

	// pointer and value share the same info
	require.Equal(t, ti, TypeInfoOf(&testStruct{}))
	require.Equal(t, ti, TypeInfoFor[testStruct]())
}

func TestSetAttr(t *testing.T) {
	s := &testStruct{}

	require.NoError(t, SetAttr(s, "name", "hello"))
	require.Equal(t, "hello", s.Name)

	// json tag and field name both resolve
	require.NoError(t, SetAttr(s, "Count", 2))
	require.Equal(t, 2, s.Count)

	// json round-trip widening
	require.NoError(t, SetAttr(s, "count", float64(7)))
	require.Equal(t, 7, s.Count)

	// fractional values must not be truncated into int fields
	require.Error(t, SetAttr(s, "count", 7.5))
	require.Equal(t, 7, s.Count)

	require.Error(t, SetAttr(s, "missing", 1))
	require.Error(t, SetAttr(s, "inner", "x"))
	require.Error(t, SetAttr(s, "count", "not a number"))
	require.Error(t, SetAttr(testStruct{}, "name", "x"))
}

func TestSetAttr_embedded(t *testing.T) {
	e := &embedded{}
	require.NoError(t, SetAttr(e, "name", "n"))
	require.NoError(t, SetAttr(e, "extra", "x"))
	require.Equal(t, "n", e.Name)
	require.Equal(t, "x", e.Extra)
}

func TestAttr(t *testing.T) {
	s := &testStruct{Name: "a", Count: 3}

	v, err := Attr(s, "name")
	require.NoError(t, err)
	require.Equal(t, "a", v)

	v, err = Attr(*s, "count")
	require.NoError(t, err)
	require.Equal(t, 3, v)

	_, err = Attr(s, "nope")
	require.Error(t, err)
}
