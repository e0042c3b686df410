// File: utils/constants.go
package utils

import "time"

// BookingLockPrefix is the prefix used for Redis booking mutex keys.
const BookingLockPrefix = "booking-lock:"

// BookingLockTTL bounds how long a booking mutex can be held; it covers the
// slowest expected gateway round trip so a crashed holder cannot wedge a
// booking forever.
const BookingLockTTL = 30 * time.Second
