package app

import "time"

// Clock supplies wall time; tests swap it to step through windows and TTLs.
type Clock func() time.Time
