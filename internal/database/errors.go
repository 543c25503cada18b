package database

import "errors"

// ErrMissingContext is returned by repositories constructed without a database.
var ErrMissingContext = errors.New("database: missing database context")
