package server

import "errors"

var errClientGone = errors.New("server: client not connected")
