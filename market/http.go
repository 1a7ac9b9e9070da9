package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/watchtrader/internal/logging"
)

const (
	// DefaultQuoteURL takes the prefixed code, start day and end day.
	DefaultQuoteURL  = "http://quotes.money.163.com/service/chddata.html?code=%s&start=%s&end=%s"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5

	openHeader  = "开盘价"
	closeHeader = "收盘价"
)

// Exchange prefixes tried in order: Shenzhen, then Shanghai.
var DefaultPrefixes = []string{"0", "1"}

// HTTPOracle fetches daily quotes from a CSV quote service.
type HTTPOracle struct {
	urlFormat  string
	prefixes   []string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// HTTPOption configures the oracle
type HTTPOption func(*HTTPOracle)

// WithURL sets the URL format. It must contain three %s verbs:
// prefixed code, start day and end day (yyyymmdd).
func WithURL(format string) HTTPOption {
	return func(o *HTTPOracle) {
		o.urlFormat = format
	}
}

func WithPrefixes(prefixes ...string) HTTPOption {
	return func(o *HTTPOracle) {
		o.prefixes = prefixes
	}
}

func WithRateLimit(requestsPerSecond int) HTTPOption {
	return func(o *HTTPOracle) {
		o.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

func WithTimeout(timeout time.Duration) HTTPOption {
	return func(o *HTTPOracle) {
		o.httpClient.Timeout = timeout
	}
}

func WithLogger(logger *logging.Logger) HTTPOption {
	return func(o *HTTPOracle) {
		o.logger = logger
	}
}

func NewHTTPOracle(opts ...HTTPOption) *HTTPOracle {
	o := &HTTPOracle{
		urlFormat:  DefaultQuoteURL,
		prefixes:   DefaultPrefixes,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     logging.NewSilent(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *HTTPOracle) Lookup(ctx context.Context, code string, day time.Time) (Quote, error) {
	ymd := day.Format("20060102")
	for _, prefix := range o.prefixes {
		q, found, err := o.fetch(ctx, prefix+code, ymd)
		if err != nil {
			return Quote{}, err
		}
		if !found {
			continue
		}
		q.Date = Day(day)
		q.Code = code
		if !q.Valid() {
			// Suspended days are published with zero prices.
			return Quote{}, unavailable(code, day)
		}
		return q, nil
	}
	return Quote{}, unavailable(code, day)
}

func (o *HTTPOracle) fetch(ctx context.Context, symbol, ymd string) (Quote, bool, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return Quote{}, false, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf(o.urlFormat, symbol, ymd, ymd)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Quote{}, false, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		o.logger.Error().Err(err).Str("symbol", symbol).Dur("elapsed", elapsed).Msg("quote request failed")
		return Quote{}, false, fmt.Errorf("quote request %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		o.logger.Warn().Str("symbol", symbol).Int("status", resp.StatusCode).Msg("quote service non-OK response")
		return Quote{}, false, fmt.Errorf("quote service status %d for %s", resp.StatusCode, symbol)
	}

	o.logger.Debug().Str("symbol", symbol).Str("day", ymd).Dur("elapsed", elapsed).Msg("quote fetched")
	return parseQuoteCSV(transform.NewReader(resp.Body, simplifiedchinese.GBK.NewDecoder()))
}

// parseQuoteCSV reads the first data row of a quote service response.
func parseQuoteCSV(r io.Reader) (Quote, bool, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return Quote{}, false, nil
	}
	if err != nil {
		return Quote{}, false, fmt.Errorf("read quote header: %w", err)
	}

	openIdx, closeIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case openHeader:
			openIdx = i
		case closeHeader:
			closeIdx = i
		}
	}
	if openIdx < 0 || closeIdx < 0 {
		return Quote{}, false, fmt.Errorf("quote header missing %s/%s columns: %v", openHeader, closeHeader, header)
	}

	row, err := cr.Read()
	if err == io.EOF {
		return Quote{}, false, nil
	}
	if err != nil {
		return Quote{}, false, fmt.Errorf("read quote row: %w", err)
	}
	if len(row) <= openIdx || len(row) <= closeIdx {
		return Quote{}, false, fmt.Errorf("short quote row: %v", row)
	}

	open, err := strconv.ParseFloat(strings.TrimSpace(row[openIdx]), 64)
	if err != nil {
		return Quote{}, false, fmt.Errorf("bad open %q: %w", row[openIdx], err)
	}
	closeP, err := strconv.ParseFloat(strings.TrimSpace(row[closeIdx]), 64)
	if err != nil {
		return Quote{}, false, fmt.Errorf("bad close %q: %w", row[closeIdx], err)
	}
	return Quote{Open: open, Close: closeP}, true, nil
}
