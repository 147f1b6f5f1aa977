package ignore

import "errors"

var ErrInvalidPattern = errors.New("invalid pattern")
