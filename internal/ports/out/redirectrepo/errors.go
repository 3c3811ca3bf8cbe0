package redirectrepo

import "errors"

var (
	ErrNotFound         = errors.New("redirect not found")
	ErrKeyAlreadyExists = errors.New("redirect key already exists")
)
