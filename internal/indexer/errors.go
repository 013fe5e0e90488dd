package indexer

import "errors"

// errNotADirectory is returned when a Location's configured path (or a
// shallow re-index's target sub-path) does not resolve to a directory.
var errNotADirectory = errors.New("indexer: path is not a directory")
