package profiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"terptracker/pkg/utils"
)

// AliasTable maps a strain stub (lowercase [a-z0-9] only) to a canonical
// display name, e.g. "gsc" -> "Girl Scout Cookies". It is read-only after
// loading.
type AliasTable struct {
	entries map[string]string
}

func EmptyAliasTable() *AliasTable {
	return &AliasTable{entries: map[string]string{}}
}

// LoadAliasTable reads a JSON object of stub to canonical name. A missing
// file or empty path yields an empty table and no error.
func LoadAliasTable(path string) (*AliasTable, error) {
	if path == "" {
		return EmptyAliasTable(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return EmptyAliasTable(), nil
		}
		return EmptyAliasTable(), fmt.Errorf("read alias table: %w", err)
	}
	return ParseAliasTable(raw)
}

// ParseAliasTable builds a table from JSON. Keys are re-stubbed so hand
// edited files with spaces or capitals still resolve.
func ParseAliasTable(raw []byte) (*AliasTable, error) {
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return EmptyAliasTable(), fmt.Errorf("parse alias table: %w", err)
	}
	t := EmptyAliasTable()
	for k, v := range m {
		if stub := utils.StrainStub(k); stub != "" && v != "" {
			t.entries[stub] = v
		}
	}
	return t, nil
}

// Resolve returns the canonical name for name's stub.
func (t *AliasTable) Resolve(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	stub := utils.StrainStub(name)
	if stub == "" {
		return "", false
	}
	v, ok := t.entries[stub]
	return v, ok
}

func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
