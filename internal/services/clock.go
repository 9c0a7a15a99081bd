package services

import (
	"time"

	"familyledger/internal/core"
)

// Clock supplies "today" for operations whose date parameter is optional.
type Clock interface {
	Today() core.Date
}

// SystemClock reads the wall clock in the ledger's configured zone.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Today() core.Date {
	return core.Today(c.Location)
}

// FixedClock always returns the same day.
type FixedClock struct {
	Date core.Date
}

func (c FixedClock) Today() core.Date {
	return c.Date
}
