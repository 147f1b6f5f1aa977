package config

import "errors"

var ErrValidationFailed = errors.New("validation failed")
