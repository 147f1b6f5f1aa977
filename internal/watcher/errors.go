package watcher

import "errors"

var ErrNoWatchableRoots = errors.New("no watchable roots")
