package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airbnb/viaduct/schema"
)

func TestIntLiteralRejectsLeadingZero(t *testing.T) {
	_, err := schema.IntLiteral("007")
	assert.Error(t, err)

	lit, err := schema.IntLiteral("0")
	require.NoError(t, err)
	assert.Equal(t, "0", lit.String())
}

func TestFloatLiteralRequiresFractionOrExponent(t *testing.T) {
	_, err := schema.FloatLiteral("3")
	assert.Error(t, err)

	lit, err := schema.FloatLiteral("3.0")
	require.NoError(t, err)
	assert.Equal(t, "3.0", lit.String())
}

func TestFloatLiteralsDistinctByLexicalForm(t *testing.T) {
	a, err := schema.FloatLiteral("3.14")
	require.NoError(t, err)
	b, err := schema.FloatLiteral("3.140")
	require.NoError(t, err)

	assert.False(t, a.Equal(b), "3.14 and 3.140 must remain distinct")
}

func TestEnumLiteralRejectsKeywords(t *testing.T) {
	for _, kw := range []string{"true", "false", "null"} {
		_, err := schema.EnumLiteral(kw)
		assert.Errorf(t, err, "enum literal %q should be rejected", kw)
	}

	lit, err := schema.EnumLiteral("ACTIVE")
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", lit.String())
}

func TestListAndObjectLiteralRoundTrip(t *testing.T) {
	one, _ := schema.IntLiteral("1")
	two, _ := schema.IntLiteral("2")
	list := schema.ListLiteral(one, two)
	assert.Equal(t, "[1, 2]", list.String())

	obj := schema.ObjectLiteral(
		schema.ObjectField{Name: "a", Value: one},
		schema.ObjectField{Name: "b", Value: two},
	)
	assert.Equal(t, "{a: 1, b: 2}", obj.String())
}
