package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want StringList
	}{
		{`{"groupBy":"a"}`, StringList{"a"}},
		{`{"groupBy":["a","b"]}`, StringList{"a", "b"}},
		{`{"groupBy":[]}`, StringList{}},
		{`{"groupBy":null}`, nil},
		{`{}`, nil},
	}
	for _, tt := range tests {
		var req GroupAggregateRequest
		require.NoError(t, json.Unmarshal([]byte(tt.in), &req), tt.in)
		assert.Equal(t, tt.want, req.GroupBy, tt.in)
	}

	var req GroupAggregateRequest
	assert.Error(t, json.Unmarshal([]byte(`{"groupBy":5}`), &req))
}

func TestTimeSeriesRequest_PeriodsOrDefault(t *testing.T) {
	var req TimeSeriesRequest
	require.NoError(t, json.Unmarshal([]byte(`{"column":"v"}`), &req))
	assert.Equal(t, 1, req.PeriodsOrDefault())
	assert.Nil(t, req.Decompose)

	require.NoError(t, json.Unmarshal([]byte(`{"column":"v","periods":0,"decompose":false}`), &req))
	assert.Equal(t, 0, req.PeriodsOrDefault())
	require.NotNil(t, req.Decompose)
	assert.False(t, *req.Decompose)
}
