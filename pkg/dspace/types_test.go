package dspace_test

import (
	"encoding/json"
	"testing"

	"github.com/kosarko/dspace-rest-import/pkg/dspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    dspace.ID
		wantErr bool
	}{
		{"uuid", `"1f0c2a4e-6a0b-4f6c-9d8e-3b1f7c2d9a10"`, "1f0c2a4e-6a0b-4f6c-9d8e-3b1f7c2d9a10", false},
		{"legacy integer", `42`, "42", false},
		{"null", `null`, "", false},
		{"object", `{"id":1}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id dspace.ID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestIDUUID(t *testing.T) {
	u, ok := dspace.ID("1f0c2a4e-6a0b-4f6c-9d8e-3b1f7c2d9a10").UUID()
	assert.True(t, ok)
	assert.Equal(t, "1f0c2a4e-6a0b-4f6c-9d8e-3b1f7c2d9a10", u.String())

	_, ok = dspace.ID("42").UUID()
	assert.False(t, ok)
}

func TestMetadataEntryLanguageEncoding(t *testing.T) {
	data, err := json.Marshal([]dspace.MetadataEntry{
		dspace.Entry(dspace.IdentifierURIKey, "http://hdl.handle.net/11234/1-1"),
		dspace.LangEntry("dc.title", "Korpus", "cs"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"key":"dc.identifier.uri","value":"http://hdl.handle.net/11234/1-1","language":null},
		{"key":"dc.title","value":"Korpus","language":"cs"}
	]`, string(data))
}

func TestBitstreamDecode(t *testing.T) {
	var b dspace.Bitstream
	err := json.Unmarshal([]byte(`{
		"id": 17,
		"name": "data.csv",
		"sizeBytes": 13,
		"mimeType": "text/csv",
		"retrieveLink": "/bitstreams/17/retrieve",
		"checkSum": {"value": "abc", "checkSumAlgorithm": "MD5"},
		"sequenceId": 1
	}`), &b)
	require.NoError(t, err)
	assert.Equal(t, dspace.ID("17"), b.ID)
	assert.Equal(t, int64(13), b.SizeBytes)
	require.NotNil(t, b.CheckSum)
	assert.Equal(t, "MD5", b.CheckSum.Algorithm)
}
