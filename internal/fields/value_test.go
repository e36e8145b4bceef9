package fields

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Accessors(t *testing.T) {
	n, ok := Int(42).AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = Number(1.5).AsInt()
	assert.False(t, ok)

	s, ok := Text("x").AsText()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	_, ok = Text("x").AsNumber()
	assert.False(t, ok)

	assert.True(t, Value{}.IsNull())
	assert.Equal(t, KindList, List().Kind())
	assert.Equal(t, KindObject, Object(nil).Kind())
}

func TestValue_Equal(t *testing.T) {
	a := Object(map[string]Value{"type": Text("weekly"), "days": List(Int(1), Int(3))})
	b := Object(map[string]Value{"type": Text("weekly"), "days": List(Int(1), Int(3))})
	c := Object(map[string]Value{"type": Text("weekly"), "days": List(Int(3), Int(1))})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, Text("1").Equal(Int(1)))
	assert.True(t, Null().Equal(Value{}))
}

func TestValue_JSON(t *testing.T) {
	in := `{"a":[1,"x",true,null],"b":{"c":"<d>"}}`

	var v Value
	require.NoError(t, json.Unmarshal([]byte(in), &v))
	require.Equal(t, KindObject, v.Kind())

	obj, _ := v.AsObject()
	list, _ := obj["a"].AsList()
	require.Len(t, list, 4)
	assert.True(t, list[3].IsNull())

	// no HTML escaping
	assert.Equal(t, in, v.String())
}

func TestFromAny_Unsupported(t *testing.T) {
	_, err := FromAny(struct{}{})
	assert.Error(t, err)
}

func TestRecordFromJSON(t *testing.T) {
	r, err := RecordFromJSON([]byte(`{"title":"Run","tags":["fitness","cardio"],"count":3}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"count", "tags", "title"}, r.Keys())
	assert.True(t, r["tags"].Equal(Texts("fitness", "cardio")))
	assert.True(t, r["count"].Equal(Int(3)))

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Run","tags":["fitness","cardio"],"count":3}`, string(out))

	_, err = RecordFromJSON([]byte(`[1]`))
	assert.Error(t, err)
}
