package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ProjectResponse is the body of GET {endpoint}.
type ProjectResponse struct {
	ProjectID   string    `json:"project_id,omitempty"`
	ProjectName string    `json:"project_name,omitempty"`
	Versions    *[]string `json:"versions"`
}

// VersionResponse is the body of GET {endpoint}/{version}.
type VersionResponse struct {
	Project string  `json:"project,omitempty"`
	Version string  `json:"version,omitempty"`
	Builds  *Builds `json:"builds"`
}

type Builds struct {
	Latest BuildID    `json:"latest,omitempty"`
	All    *[]BuildID `json:"all"`
}

// BuildID accepts both string and numeric build identifiers.
type BuildID string

func (b *BuildID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = BuildID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid build id: %s", string(data))
	}

	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("invalid build id: %s", n.String())
	}

	*b = BuildID(n.String())
	return nil
}

func (b BuildID) String() string {
	return string(b)
}
