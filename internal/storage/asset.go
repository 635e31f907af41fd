package storage

import (
	"fmt"
	"regexp"

	"github.com/pixil98/go-errors"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]*$`)

type ValidatingSpec interface {
	Validate() error
}

type Identifier string

func (id Identifier) String() string {
	return string(id)
}

// Asset is the on-disk envelope for one stored record.
type Asset[T ValidatingSpec] struct {
	Version    uint       `json:"version"`
	Identifier Identifier `json:"id"`
	Spec       T          `json:"spec"`
}

func (a *Asset[T]) Id() string {
	return a.Identifier.String()
}

func (a *Asset[T]) Validate() error {
	el := errors.NewErrorList()

	if a.Version == 0 {
		el.Add(fmt.Errorf("version must be set"))
	}

	if a.Identifier == "" {
		el.Add(fmt.Errorf("id must be set"))
	}

	if !ValidIdentifier(a.Identifier.String()) {
		el.Add(fmt.Errorf("id may only contain letters, digits, hyphens and underscores"))
	}

	el.Add(a.Spec.Validate())

	return el.Err()
}

// ValidIdentifier reports whether id can be used as a file name by FileStore.
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}
