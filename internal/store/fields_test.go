package store

import (
	"encoding/json"
	"testing"

	perrors "github.com/abgdnv/fscatalog/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_buildProduct(t *testing.T) {
	v := newValidator()
	testCases := []struct {
		name            string
		mutate          func(Fields)
		expectedFields  []string
		expectedMessage string
	}{
		{
			name:            "one missing field uses singular wording",
			mutate:          func(f Fields) { delete(f, "category") },
			expectedFields:  []string{"category"},
			expectedMessage: "all product fields must be filled in: category field is missing",
		},
		{
			name: "several missing fields use plural wording",
			mutate: func(f Fields) {
				delete(f, "title")
				f["code"] = ""
			},
			expectedFields:  []string{"title", "code"},
			expectedMessage: "all product fields must be filled in: title, code fields are missing",
		},
		{
			name:            "text field with a number",
			mutate:          func(f Fields) { f["title"] = 12 },
			expectedFields:  []string{"title"},
			expectedMessage: "title must be text",
		},
		{
			name:            "price as string",
			mutate:          func(f Fields) { f["price"] = "10" },
			expectedFields:  []string{"price"},
			expectedMessage: "price must be a number",
		},
		{
			name:            "fractional stock",
			mutate:          func(f Fields) { f["stock"] = 1.5 },
			expectedFields:  []string{"stock"},
			expectedMessage: "stock must be an integer",
		},
		{
			name:            "status not boolean",
			mutate:          func(f Fields) { f["status"] = "true" },
			expectedFields:  []string{"status"},
			expectedMessage: "status must be a boolean",
		},
		{
			name:            "thumbnails not text",
			mutate:          func(f Fields) { f["thumbnails"] = []string{"a.jpg"} },
			expectedFields:  []string{"thumbnails"},
			expectedMessage: "thumbnails must be text",
		},
		{
			name:            "stock beyond exact integer range",
			mutate:          func(f Fields) { f["stock"] = json.Number("9223372036854775807") },
			expectedFields:  []string{"stock"},
			expectedMessage: "stock must be less than or equal to 9007199254740992",
		},
		{
			name:            "unknown field",
			mutate:          func(f Fields) { f["colour"] = "red" },
			expectedFields:  []string{"colour"},
			expectedMessage: `unknown product field "colour"`,
		},
		{
			name: "several unknown fields are sorted",
			mutate: func(f Fields) {
				f["weight"] = 2
				f["colour"] = "red"
			},
			expectedFields:  []string{"colour", "weight"},
			expectedMessage: `unknown product field "colour", "weight"`,
		},
		{
			name:            "negative price",
			mutate:          func(f Fields) { f["price"] = -0.5 },
			expectedFields:  []string{"price"},
			expectedMessage: "price must be greater than or equal to 0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			fields := widget("W1")
			tc.mutate(fields)

			// when
			_, err := buildProduct(fields, DefaultThumbnail, v)

			// then
			var verr *perrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, perrors.ErrValidation)
			assert.Equal(t, tc.expectedFields, verr.Fields)
			assert.Equal(t, tc.expectedMessage, verr.Error())
		})
	}
}

func Test_buildProduct_Defaults(t *testing.T) {
	fields := widget("W1")
	delete(fields, "status")

	p, err := buildProduct(fields, "./img/none.png", newValidator())

	require.NoError(t, err)
	assert.True(t, p.Status)
	assert.Equal(t, "./img/none.png", p.Thumbnails)
	assert.Zero(t, p.ID)
}

func Test_buildProduct_IgnoresSuppliedID(t *testing.T) {
	fields := widget("W1")
	fields["id"] = 42

	p, err := buildProduct(fields, DefaultThumbnail, newValidator())

	require.NoError(t, err)
	assert.Zero(t, p.ID)
}

func Test_mergeProduct_StockBeyondExactIntegerRange(t *testing.T) {
	p := Product{ID: 1, Title: "t", Description: "d", Code: "c", Category: "k", Stock: 3}

	_, err := mergeProduct(p, Fields{"stock": 1e19}, newValidator())

	var verr *perrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"stock"}, verr.Fields)
	assert.Equal(t, "stock must be less than or equal to 9007199254740992", verr.Error())
}

func Test_buildProduct_ZeroValuesArePresent(t *testing.T) {
	fields := widget("W1")
	fields["price"] = 0
	fields["stock"] = json.Number("0")

	p, err := buildProduct(fields, DefaultThumbnail, newValidator())

	require.NoError(t, err)
	assert.Zero(t, p.Price)
	assert.Zero(t, p.Stock)
}

func Test_nextID(t *testing.T) {
	assert.Equal(t, 1, nextID(nil))
	assert.Equal(t, 1, nextID(Collection{}))
	assert.Equal(t, 8, nextID(Collection{{ID: 2}, {ID: 7}}))
}
