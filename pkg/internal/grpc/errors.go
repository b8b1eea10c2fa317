package grpc

import "errors"

var errDatabaseUnavailable = errors.New("database is not connected")
