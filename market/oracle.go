package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPriceUnavailable is returned when there is no quote for a code on a day.
var ErrPriceUnavailable = errors.New("price unavailable")

// Quote is one day's opening and closing price for a code.
type Quote struct {
	Date  time.Time
	Code  string
	Open  float64
	Close float64
}

// Valid reports whether both prices are usable for trading.
func (q Quote) Valid() bool {
	return q.Open > 0 && q.Close > 0
}

// Oracle maps (code, day) to that day's quote.
// Implementations return an error wrapping ErrPriceUnavailable when the
// quote does not exist; any other error is a lookup failure.
type Oracle interface {
	Lookup(ctx context.Context, code string, day time.Time) (Quote, error)
}

func unavailable(code string, day time.Time) error {
	return fmt.Errorf("%s on %s: %w", code, DateKey(day), ErrPriceUnavailable)
}

type quoteKey struct {
	code string
	day  string
}

// MapOracle is an in-memory quote table.
type MapOracle struct {
	mu     sync.RWMutex
	quotes map[quoteKey]Quote
}

func NewMapOracle() *MapOracle {
	return &MapOracle{quotes: make(map[quoteKey]Quote)}
}

// Set stores q, replacing any earlier quote for the same code and day.
func (o *MapOracle) Set(q Quote) {
	o.mu.Lock()
	defer o.mu.Unlock()
	q.Date = Day(q.Date)
	o.quotes[quoteKey{q.Code, DateKey(q.Date)}] = q
}

func (o *MapOracle) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.quotes)
}

func (o *MapOracle) Lookup(_ context.Context, code string, day time.Time) (Quote, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	q, ok := o.quotes[quoteKey{code, DateKey(day)}]
	if !ok || !q.Valid() {
		return Quote{}, unavailable(code, day)
	}
	return q, nil
}

type cached struct {
	q   Quote
	err error
}

// CachedOracle memoizes another oracle. Unavailable answers are cached too;
// other errors are not, so a transient failure can be retried.
type CachedOracle struct {
	next Oracle

	mu   sync.Mutex
	memo map[quoteKey]cached
	hits int
}

func NewCachedOracle(next Oracle) *CachedOracle {
	return &CachedOracle{next: next, memo: make(map[quoteKey]cached)}
}

func (c *CachedOracle) Lookup(ctx context.Context, code string, day time.Time) (Quote, error) {
	key := quoteKey{code, DateKey(day)}

	c.mu.Lock()
	if v, ok := c.memo[key]; ok {
		c.hits++
		c.mu.Unlock()
		return v.q, v.err
	}
	c.mu.Unlock()

	q, err := c.next.Lookup(ctx, code, day)
	if err != nil && !errors.Is(err, ErrPriceUnavailable) {
		return Quote{}, err
	}

	c.mu.Lock()
	c.memo[key] = cached{q: q, err: err}
	c.mu.Unlock()
	return q, err
}

// Hits returns how many lookups were answered from the cache.
func (c *CachedOracle) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}
