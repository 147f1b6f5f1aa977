package reconciler

import "errors"

var ErrStreamClosed = errors.New("event stream closed")
