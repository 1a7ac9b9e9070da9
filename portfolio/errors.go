package portfolio

import (
	"errors"

	"github.com/rustyeddy/watchtrader/market"
)

var (
	// ErrDuplicateHolding means a buy-in hit a code that is already held.
	ErrDuplicateHolding = errors.New("duplicate holding")

	// ErrInsufficientCash means cash is below the fixed per-stock amount.
	ErrInsufficientCash = errors.New("insufficient cash")

	// ErrNotHeld means a sell-out named a code that is not held.
	ErrNotHeld = errors.New("not held")

	// ErrPriceUnavailable is the only error the replay loop recovers from.
	ErrPriceUnavailable = market.ErrPriceUnavailable

	ErrInvalidPrice = errors.New("price must be positive")
	ErrInvalidRatio = errors.New("sell ratio must be in (0, 1]")
	ErrNoAverage    = errors.New("no moving averages for date")
)
