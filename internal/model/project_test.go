package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    BuildID
		wantErr bool
	}{
		{name: "string", data: `"2062"`, want: "2062"},
		{name: "number", data: `2062`, want: "2062"},
		{name: "float", data: `20.5`, wantErr: true},
		{name: "bool", data: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got BuildID
			err := json.Unmarshal([]byte(tt.data), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionResponse_MissingBuilds(t *testing.T) {
	var resp VersionResponse
	require.NoError(t, json.Unmarshal([]byte(`{"project":"purpur","version":"1.20.1"}`), &resp))
	assert.Nil(t, resp.Builds)

	require.NoError(t, json.Unmarshal([]byte(`{"builds":{"latest":"3","all":["1",2,"3"]}}`), &resp))
	require.NotNil(t, resp.Builds)
	require.NotNil(t, resp.Builds.All)
	assert.Equal(t, []BuildID{"1", "2", "3"}, *resp.Builds.All)
}
