// Package partition maps usernames to per-user SQLite files and opens them.
package partition

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/nabzkeeper/internal/common"
)

// namespace is the UUID v5 namespace partition keys are derived under.
// Changing it orphans every existing partition file.
var namespace = uuid.MustParse("6f0c5a8e-2f4b-5d1e-9a57-1c3b7e0d4a21")

const fileExt = ".db"

// Location identifies one user's partition store.
type Location struct {
	Key  string
	Path string
}

// Resolver derives partition locations from usernames.
type Resolver struct {
	dir  string
	hash bool
}

// NewResolver returns a Resolver placing partitions under dir. With hash set
// the file name is derived from the username, otherwise the username itself
// is used.
func NewResolver(dir string, hash bool) *Resolver {
	return &Resolver{dir: dir, hash: hash}
}

// Dir is the directory holding all partition files.
func (r *Resolver) Dir() string {
	return r.dir
}

// Key returns the partition key for username.
func (r *Resolver) Key(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: empty username", common.ErrValidation)
	}
	if r.hash {
		return uuid.NewSHA1(namespace, []byte(username)).String(), nil
	}
	if strings.ContainsAny(username, `/\`+"\x00") || strings.Contains(username, "..") {
		return "", fmt.Errorf("%w: username %q cannot be used as a file name", common.ErrValidation, username)
	}
	return username, nil
}

// Resolve returns the location of username's partition. It does not touch
// the file system.
func (r *Resolver) Resolve(username string) (Location, error) {
	key, err := r.Key(username)
	if err != nil {
		return Location{}, err
	}
	return Location{Key: key, Path: filepath.Join(r.dir, key+fileExt)}, nil
}
