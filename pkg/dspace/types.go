package dspace

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID identifies a community, collection, item or bitstream on the server.
// DSpace 6 hands out UUIDs while DSpace 5 uses integers; both decode into ID.
type ID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// UUID parses the id as a UUID. The second result is false for numeric ids.
func (id ID) UUID() (uuid.UUID, bool) {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return uuid.Nil, false
	}
	return u, true
}

// MetadataEntry is a single (key, value, language) triple describing an item field,
// e.g. dc.identifier.uri. A nil Language is sent as JSON null.
type MetadataEntry struct {
	Key      string  `json:"key"`
	Value    string  `json:"value"`
	Language *string `json:"language"`
}

// Entry builds a MetadataEntry without a language.
func Entry(key, value string) MetadataEntry {
	return MetadataEntry{Key: key, Value: value}
}

// LangEntry builds a MetadataEntry with a language tag.
func LangEntry(key, value, language string) MetadataEntry {
	return MetadataEntry{Key: key, Value: value, Language: &language}
}

// IdentifierURIKey is the metadata field holding an item's persistent identifier.
const IdentifierURIKey = "dc.identifier.uri"

// Bitstream is the server's view of an uploaded file. Only ID is guaranteed.
type Bitstream struct {
	ID           ID        `json:"id"`
	Name         string    `json:"name"`
	SizeBytes    int64     `json:"sizeBytes,omitempty"`
	MimeType     string    `json:"mimeType,omitempty"`
	RetrieveLink string    `json:"retrieveLink,omitempty"`
	CheckSum     *CheckSum `json:"checkSum,omitempty"`
}

// CheckSum is the digest the server computed for a bitstream.
type CheckSum struct {
	Value     string `json:"value"`
	Algorithm string `json:"checkSumAlgorithm"`
}

// Status is the decoded body of GET /status.
type Status struct {
	Okay          bool   `json:"okay"`
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	FullName      string `json:"fullname,omitempty"`
	Token         string `json:"token,omitempty"`
	APIVersion    string `json:"apiVersion,omitempty"`
	SourceVersion string `json:"sourceVersion,omitempty"`
}

// ResourceKind names the level of the hierarchy an event or lookup refers to.
type ResourceKind string

const (
	KindCommunity  ResourceKind = "community"
	KindCollection ResourceKind = "collection"
	KindItem       ResourceKind = "item"
	KindBitstream  ResourceKind = "bitstream"
)

// namedResource is the shape of list and create responses for communities and collections.
type namedResource struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle,omitempty"`
}

// indexByName maps names to ids. Later entries win when names repeat.
func indexByName(resources []namedResource) map[string]ID {
	index := make(map[string]ID, len(resources))
	for _, r := range resources {
		index[r.Name] = r.ID
	}
	return index
}
