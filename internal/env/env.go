// Package env tells local runs apart from production ones through $ENV.
package env

import (
	"os"
	"strings"
)

type Environment string

const (
	Local      Environment = "local"
	Production Environment = "production"

	Key string = "ENV"
)

func (e Environment) Valid() bool {
	switch e {
	case Local, Production:
		return true
	}
	return false
}

// Parse maps raw onto a known environment, falling back to Local.
func Parse(raw string) Environment {
	e := Environment(strings.ToLower(strings.TrimSpace(raw)))
	if !e.Valid() {
		return Local
	}
	return e
}

var Current = Local

func init() {
	Current = Parse(os.Getenv(Key))
}
