// Package credential loads the bearer token that the companion login flow
// writes to the local machine.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrUnreadable is returned when the token file exists but cannot be read or parsed.
var ErrUnreadable = errors.New("token file unreadable")

// tokenFile is the on-disk shape: {"token": "<string>"}.
type tokenFile struct {
	Token interface{} `json:"token"`
}

// Store reads the token from a fixed path. It never writes the file.
type Store struct {
	path string
}

// NewStore creates a Store for the given token file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the token file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored token. A missing file, or a file without a string
// "token" field, yields ("", nil): the machine is simply not logged in yet.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadable, s.path, err)
	}

	token, _ := tf.Token.(string)
	return token, nil
}
