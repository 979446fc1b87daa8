package entities

import "time"

// Table is a loaded drug table with the metadata of its source
type Table struct {
	Drugs    []DrugDefinition `json:"drugs"`
	Source   string           `json:"source"`
	Checksum string           `json:"checksum"`
	LoadedAt time.Time        `json:"loadedAt"`
}
