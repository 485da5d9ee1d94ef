package store

import (
	"errors"
	"fmt"
	"strings"
)

const (
	EngineJSON   = "json"
	EngineSQLite = "sqlite"
)

var ErrUnsupportedEngine = errors.New("unsupported store engine")

func NewByEngine(engine string, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineSQLite:
		return NewSQLiteStore(path)
	case EngineJSON:
		return NewJSONStore(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEngine, engine)
	}
}

// DefaultPath returns the data file used when none is configured.
func DefaultPath(engine string) string {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case EngineJSON:
		return "data/jardin.json"
	default:
		return "data/jardin.db"
	}
}
