package ports

import "errors"

// ErrLocked is returned by DistributedLocker.Lock when the key is held elsewhere.
var ErrLocked = errors.New("lock is held by another owner")
