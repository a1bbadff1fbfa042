package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionalDistinguishesAbsentNullAndValue(t *testing.T) {
	type payload struct {
		Code Optional[string] `json:"code"`
	}

	var absent payload
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	require.False(t, absent.Code.Set)

	var null payload
	require.NoError(t, json.Unmarshal([]byte(`{"code": null}`), &null))
	require.True(t, null.Code.Set)
	require.Nil(t, null.Code.Value)

	var set payload
	require.NoError(t, json.Unmarshal([]byte(`{"code": "10PERC"}`), &set))
	require.True(t, set.Code.Set)
	require.Equal(t, "10PERC", *set.Code.Value)
}
