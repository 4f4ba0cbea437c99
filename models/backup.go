package models

import (
	"encoding/json"
)

// Backup is the portable full-state document.
type Backup struct {
	Users      []Owner  `json:"users"`
	Orders     []Order  `json:"orders"`
	Designs    []Design `json:"designs"`
	ExportedAt string   `json:"exportedAt"`
}

// RestoreDocument is a backup as read back in. Absent or null keys stay nil
// and leave the matching collection alone.
type RestoreDocument struct {
	Users   json.RawMessage `json:"users"`
	Orders  json.RawMessage `json:"orders"`
	Designs json.RawMessage `json:"designs"`
}
