package param

import (
	"testing"
	"time"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind_EmptySet(t *testing.T) {
	params, err := Bind(Set{})
	require.NoError(t, err)
	assert.NotNil(t, params)
	assert.Empty(t, params)

	params, err = Bind(nil)
	require.NoError(t, err)
	assert.NotNil(t, params)
	assert.Empty(t, params)
}

func TestBind_OneParamPerEntry(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	set := Set{
		"@name":    "value1",
		"@age":     42,
		"@score":   3.5,
		"@active":  true,
		"@payload": []byte{0x01, 0x02},
		"@created": created,
	}

	params, err := Bind(set)
	require.NoError(t, err)
	require.Len(t, params, len(set))

	for _, p := range params {
		expected, ok := set[p.Name]
		require.True(t, ok, "unexpected parameter %s", p.Name)
		assert.Equal(t, expected, p.Value)
		assert.False(t, p.IsNull())
	}
}

func TestBind_NameIsNotTransformed(t *testing.T) {
	params, err := Bind(Set{"@param1": "value1", "plain": "x"})
	require.NoError(t, err)

	names := []string{params[0].Name, params[1].Name}
	assert.ElementsMatch(t, []string{"@param1", "plain"}, names)
}

func TestBind_NilBecomesExplicitNull(t *testing.T) {
	var missing *string
	params, err := Bind(Set{"@deleted_at": nil, "@nick": missing})
	require.NoError(t, err)
	require.Len(t, params, 2)

	for _, p := range params {
		assert.True(t, p.IsNull(), "%s should be bound as NULL", p.Name)
		assert.Equal(t, Null, p.Value)
		assert.Nil(t, p.Native())
	}
}

func TestBind_SortedByName(t *testing.T) {
	params, err := Bind(Set{"@c": 3, "@a": 1, "@b": 2})
	require.NoError(t, err)

	assert.Equal(t, "@a", params[0].Name)
	assert.Equal(t, "@b", params[1].Name)
	assert.Equal(t, "@c", params[2].Name)
}

func TestBind_RejectsUnsupportedType(t *testing.T) {
	_, err := Bind(Set{"@tags": []string{"a", "b"}})
	require.Error(t, err)
	assert.True(t, apperr.IsUnknown(err))
}

func TestBind_RejectsEmptyName(t *testing.T) {
	_, err := Bind(Set{"@": 1})
	require.Error(t, err)
	assert.True(t, apperr.IsUnknown(err))
}

func TestBind_RejectsSameBareName(t *testing.T) {
	_, err := Bind(Set{"@name": "ada", "name": "zzz"})
	require.Error(t, err)
	assert.True(t, apperr.IsUnknown(err))
	assert.Contains(t, err.Error(), `"@name" and "name"`)

	_, err = Bind(Set{":id": 1, "$id": 2})
	assert.True(t, apperr.IsUnknown(err))

	params, err := Bind(Set{"@id": 1, "@Id": 2})
	require.NoError(t, err)
	assert.Len(t, params, 2)
}

func TestBareName(t *testing.T) {
	assert.Equal(t, "id", BareName("@id"))
	assert.Equal(t, "id", BareName(":id"))
	assert.Equal(t, "id", BareName("$id"))
	assert.Equal(t, "id", BareName("id"))
	assert.Equal(t, "@id", BareName("@@id"))
	assert.Equal(t, "", BareName(""))
}

func TestEcho_RoundTrip(t *testing.T) {
	set := Set{"@a": "x", "@b": nil, "@c": int64(7)}

	params, err := Bind(set)
	require.NoError(t, err)

	assert.Equal(t, set, Echo(params))
}
