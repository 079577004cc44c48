package jsonx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string         `json:"name"`
	Tags  []string       `json:"tags"`
	Count map[string]int `json:"count"`
}

func TestMarshalSortsMapKeys(t *testing.T) {
	v := sample{Name: "x", Tags: []string{"a"}, Count: map[string]int{"zeta": 1, "alpha": 2, "mid": 3}}

	first, err := Marshal(v)
	require.NoError(t, err)
	second, err := Marshal(v)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, `{"name":"x","tags":["a"],"count":{"alpha":2,"mid":3,"zeta":1}}`, string(first))
}

func TestUnmarshal(t *testing.T) {
	var got sample
	require.NoError(t, Unmarshal([]byte(`{"name":"y","tags":["b","c"]}`), &got))
	assert.Equal(t, "y", got.Name)
	assert.Equal(t, []string{"b", "c"}, got.Tags)
}

func TestEncoderDecoderLines(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(sample{Name: "one"}))
	require.NoError(t, enc.Encode(sample{Name: "two"}))

	dec := NewDecoder(&buf)
	var names []string
	for dec.More() {
		var s sample
		require.NoError(t, dec.Decode(&s))
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"one", "two"}, names)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid([]byte(`{"a":1}`)))
	assert.False(t, Valid([]byte(`{"a":`)))
}
