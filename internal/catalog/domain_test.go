package catalog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstudio/internal/catalog"
)

func TestDateJSON(t *testing.T) {
	js, err := json.Marshal(catalog.NewDate(1967, time.May, 30))
	require.NoError(t, err)
	assert.Equal(t, `"1967-05-30"`, string(js))

	js, err = json.Marshal(catalog.Date{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(js))

	var d catalog.Date
	require.NoError(t, json.Unmarshal([]byte(`"2001-09-11"`), &d))
	assert.Equal(t, catalog.NewDate(2001, time.September, 11), d)

	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.True(t, d.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`20010911`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"11/09/2001"`), &d))
}

func TestChangePayloadIsEmbeddedVerbatim(t *testing.T) {
	c := catalog.Change{
		Kind:     catalog.KindGenre,
		EntityID: 3,
		Action:   catalog.ActionCreated,
		Version:  1,
		Payload:  []byte(`{"id":3,"name":"Essay"}`),
	}
	js, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded struct {
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(js, &decoded))
	assert.Equal(t, map[string]any{"id": float64(3), "name": "Essay"}, decoded.Payload)
}
