package types

import (
	"encoding/json"
	"fmt"
)

// StorageLocation identifies where an uploaded take ended up.
type StorageLocation string

const (
	// StorageRemote indicates the raw media was stored in the object store.
	StorageRemote StorageLocation = "remote"

	// StorageLocal indicates the degraded fallback path was used and the
	// media lives on the backend's local disk.
	StorageLocal StorageLocation = "local"
)

// String returns the string representation of the storage location.
func (l StorageLocation) String() string {
	return string(l)
}

// IsValid checks whether the location is one of the defined constants.
func (l StorageLocation) IsValid() bool {
	return l == StorageRemote || l == StorageLocal
}

// MarshalJSON implements json.Marshaler for StorageLocation.
func (l StorageLocation) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(l))
}

// UnmarshalJSON implements json.Unmarshaler for StorageLocation.
func (l *StorageLocation) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	loc := StorageLocation(str)
	if !loc.IsValid() {
		return fmt.Errorf("invalid storage location: %q", str)
	}

	*l = loc
	return nil
}
