package core

import (
	"errors"
)

var (
	ErrConfigInvalid = errors.New("invalid configuration")
)
