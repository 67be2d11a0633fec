// Package keyfile projects the depots section of a VDF key file into depot records.
package keyfile

import (
	"errors"
	"fmt"

	"github.com/meza/manifest-fetcher/internal/vdf"
)

const (
	// KeyFileName is tried first.
	KeyFileName = "Key.vdf"
	// ConfigFileName is only consulted when KeyFileName yields nothing.
	ConfigFileName = "config.vdf"

	depotsSection = "depots"
	decryptionKey = "DecryptionKey"
)

// CandidateNames lists the key files in the order they are tried.
func CandidateNames() []string {
	return []string{KeyFileName, ConfigFileName}
}

type DepotRecord struct {
	DepotID       string
	DecryptionKey string
}

var ErrMalformedKeyFile = errors.New("malformed key file")

type MalformedKeyFileError struct {
	Reason string
	Err    error
}

func (malformed *MalformedKeyFileError) Error() string {
	if malformed.Err != nil {
		return fmt.Sprintf("malformed key file: %s: %s", malformed.Reason, malformed.Err)
	}
	return fmt.Sprintf("malformed key file: %s", malformed.Reason)
}

func (malformed *MalformedKeyFileError) Is(target error) bool {
	return target == ErrMalformedKeyFile
}

func (malformed *MalformedKeyFileError) Unwrap() error {
	return malformed.Err
}

// Decode parses data and returns one record per child of the depots section, in document order.
// A depot id seen twice keeps its first position and takes the last key given for it, the way
// duplicate VDF blocks merge.
func Decode(data []byte) ([]DepotRecord, error) {
	root, err := vdf.Parse(data)
	if err != nil {
		return nil, &MalformedKeyFileError{Reason: "invalid key-value text", Err: err}
	}

	depots, ok := root.GetObject(depotsSection)
	if !ok {
		return nil, &MalformedKeyFileError{Reason: "missing depots section"}
	}

	order := make([]string, 0, depots.Len())
	keys := make(map[string]string, depots.Len())
	for _, node := range depots.Nodes() {
		if !node.IsObject() {
			continue
		}
		if _, seen := keys[node.Key]; !seen {
			order = append(order, node.Key)
			keys[node.Key] = ""
		}
		if key, ok := node.Object.GetString(decryptionKey); ok && key != "" {
			keys[node.Key] = key
		}
	}

	records := make([]DepotRecord, 0, len(order))
	for _, depotID := range order {
		if keys[depotID] == "" {
			continue
		}
		records = append(records, DepotRecord{DepotID: depotID, DecryptionKey: keys[depotID]})
	}
	return records, nil
}
