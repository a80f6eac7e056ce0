package storage

import "errors"

// ErrNotConnected is returned when a query is issued on a closed database
var ErrNotConnected = errors.New("database not connected")
