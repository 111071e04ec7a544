package repo

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	inventoryType   = "https://ocfl.io/1.1/spec/#inventory"
	digestAlgorithm = "sha512"
)

// inventory records every version of an object and where each piece of
// content is stored. Content is addressed by digest, so a file already present
// in an earlier version is not stored again.
type inventory struct {
	ID               string              `json:"id"`
	Type             string              `json:"type"`
	DigestAlgorithm  string              `json:"digestAlgorithm"`
	Head             string              `json:"head"`
	ContentDirectory string              `json:"contentDirectory"`
	Manifest         map[string][]string `json:"manifest"`
	Versions         map[string]*version `json:"versions"`
}

type version struct {
	Created time.Time           `json:"created"`
	Message string              `json:"message,omitempty"`
	User    *user               `json:"user,omitempty"`
	State   map[string][]string `json:"state"`
}

type user struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

func newInventory(objectID string) *inventory {
	return &inventory{
		ID:               objectID,
		Type:             inventoryType,
		DigestAlgorithm:  digestAlgorithm,
		ContentDirectory: contentDir,
		Manifest:         map[string][]string{},
		Versions:         map[string]*version{},
	}
}

func decodeInventory(data []byte) (*inventory, error) {
	var inv inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("corrupt inventory: %w", err)
	}
	if inv.Manifest == nil {
		inv.Manifest = map[string][]string{}
	}
	if inv.Versions == nil {
		inv.Versions = map[string]*version{}
	}
	return &inv, nil
}

func (inv *inventory) encode() ([]byte, error) {
	return json.MarshalIndent(inv, "", "  ")
}

// nextVersion returns the name of the version following head.
func (inv *inventory) nextVersion() (string, error) {
	if inv.Head == "" {
		return "v1", nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(inv.Head, "v"))
	if err != nil || !strings.HasPrefix(inv.Head, "v") {
		return "", fmt.Errorf("corrupt inventory: invalid head %q", inv.Head)
	}
	return "v" + strconv.Itoa(n+1), nil
}

// hasDigest reports whether content with the digest is already stored.
func (inv *inventory) hasDigest(digest string) bool {
	return len(inv.Manifest[digest]) > 0
}
