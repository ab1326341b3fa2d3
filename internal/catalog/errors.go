package catalog

import "errors"

// ErrAlreadyRegistered is returned by Repository.Register when name already
// names a catalog row.
var ErrAlreadyRegistered = errors.New("catalog: volume already registered")
