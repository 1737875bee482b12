package albion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"albion-market-go/internal/config"
	"albion-market-go/internal/market"
	"albion-market-go/internal/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	pricesPath = "/prices/{items}"
	dateLayout = "2006-01-02T15:04:05"
)

// QuoteSource fetches raw price quotes for item/location/quality combinations.
type QuoteSource interface {
	FetchPrices(ctx context.Context, itemIDs, locations []string, qualities []market.Quality) []market.Quote
}

// RestClient is a client for the Albion Online Data price API.
// It implements the QuoteSource interface and is safe for concurrent use.
type RestClient struct {
	client      *resty.Client
	server      string
	logger      *zap.Logger
	limiter     *rate.Limiter
	validate    *validator.Validate
	retries     int
	backoffBase time.Duration
	maxItems    int
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
}

// ensure RestClient implements the interface
var _ QuoteSource = (*RestClient)(nil)

// NewRestClient creates a new price API client.
func NewRestClient(cfg *config.Albion, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	logger.Info("Using Albion price API",
		zap.String("base_url", cfg.BaseURL),
		zap.String("server", cfg.Server),
	)

	return &RestClient{
		client:      client,
		server:      cfg.Server,
		logger:      logger.Named("albion"),
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		validate:    validator.New(),
		retries:     cfg.Retries,
		backoffBase: cfg.BackoffBase,
		maxItems:    cfg.MaxItemsPerBatch,
		sleep:       sleepContext,
		now:         time.Now,
	}
}

// PriceRecord is one element of the price endpoint's JSON array.
// The service names the location "city"; "location" is accepted as well.
type PriceRecord struct {
	ItemID           string `json:"item_id" validate:"required"`
	City             string `json:"city" validate:"required_without=Location"`
	Location         string `json:"location" validate:"required_without=City"`
	Quality          int    `json:"quality" validate:"min=1,max=5"`
	SellPriceMin     int64  `json:"sell_price_min" validate:"gte=0"`
	SellPriceMinDate string `json:"sell_price_min_date"`
	BuyPriceMax      int64  `json:"buy_price_max" validate:"gte=0"`
	BuyPriceMaxDate  string `json:"buy_price_max_date"`
}

// FetchPrices fetches quotes for itemIDs in batches of at most the configured size.
// Transient failures never surface: a batch that cannot be fetched contributes nothing.
func (c *RestClient) FetchPrices(ctx context.Context, itemIDs, locations []string, qualities []market.Quality) []market.Quote {
	var quotes []market.Quote
	for _, batch := range market.Batches(itemIDs, c.maxItems) {
		quotes = append(quotes, c.fetchBatch(ctx, batch, locations, qualities)...)
	}
	return quotes
}

// fetchBatch performs a single batched request with rate limiting and retry logic.
func (c *RestClient) fetchBatch(ctx context.Context, items, locations []string, qualities []market.Quality) []market.Quote {
	l := c.logger.With(zap.Int("items", len(items)), zap.String("first_item", items[0]))

	qs := make([]string, len(qualities))
	for i, q := range qualities {
		qs[i] = strconv.Itoa(int(q))
	}
	params := map[string]string{
		"locations": strings.Join(locations, ","),
		"qualities": strings.Join(qs, ","),
		"server":    c.server,
	}

	// In-flight requests are left to finish or time out on their own.
	reqCtx := context.WithoutCancel(ctx)

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			l.Warn("Rate limiter wait aborted, dropping batch", zap.Error(err))
			metrics.FailedBatches.Inc()
			return nil
		}

		resp, err := c.client.R().
			SetContext(reqCtx).
			SetRawPathParam("items", strings.Join(items, ",")).
			SetQueryParams(params).
			Get(pricesPath)

		if err == nil && !resp.IsError() {
			metrics.PriceRequests.WithLabelValues(strconv.Itoa(resp.StatusCode())).Inc()
			return c.decode(resp.Body(), l)
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		if err != nil { // Network errors and timeouts
			metrics.PriceRequests.WithLabelValues("error").Inc()
			shouldRetry = true
			lastErr = err
		} else {
			statusCode := resp.StatusCode()
			metrics.PriceRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
			if statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError {
				shouldRetry = true
			}
			lastErr = fmt.Errorf("unexpected status %s", resp.Status())
		}

		if !shouldRetry {
			l.Warn("Price request rejected, dropping batch", zap.Error(lastErr))
			metrics.FailedBatches.Inc()
			return nil
		}

		if attempt == c.retries-1 {
			break
		}

		// Exponential backoff: base, 2*base, 4*base...
		backoff := c.backoffBase * time.Duration(1<<attempt)
		l.Warn("Price request failed, retrying...",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.retries),
			zap.Duration("retry_after", backoff),
			zap.Error(lastErr),
		)
		metrics.PriceRetries.Inc()
		if err := c.sleep(ctx, backoff); err != nil {
			l.Warn("Backoff interrupted, dropping batch", zap.Error(err))
			metrics.FailedBatches.Inc()
			return nil
		}
	}

	l.Error("Price request failed after all attempts, dropping batch",
		zap.Int("attempts", c.retries),
		zap.Error(lastErr),
	)
	metrics.FailedBatches.Inc()
	return nil
}

// decode turns a response body into validated quotes. Malformed records are
// dropped one by one; the rest of the batch is kept.
func (c *RestClient) decode(body []byte, l *zap.Logger) []market.Quote {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		l.Error("Failed to decode price response", zap.Error(err))
		metrics.FailedBatches.Inc()
		return nil
	}

	fetchedAt := c.now()
	quotes := make([]market.Quote, 0, len(raw))
	for i, msg := range raw {
		quote, err := c.toQuote(msg, fetchedAt)
		if err != nil {
			l.Warn("Rejecting malformed price record", zap.Int("index", i), zap.Error(err))
			metrics.RejectedRecords.Inc()
			continue
		}
		quotes = append(quotes, quote)
	}
	return quotes
}

func (c *RestClient) toQuote(msg json.RawMessage, fetchedAt time.Time) (market.Quote, error) {
	var rec PriceRecord
	if err := json.Unmarshal(msg, &rec); err != nil {
		return market.Quote{}, fmt.Errorf("decode record: %w", err)
	}
	if err := c.validate.Struct(rec); err != nil {
		return market.Quote{}, fmt.Errorf("invalid record for %q: %w", rec.ItemID, err)
	}

	location := rec.City
	if location == "" {
		location = rec.Location
	}

	return market.Quote{
		ItemID:     rec.ItemID,
		Quality:    market.Quality(rec.Quality),
		Location:   location,
		SellPrice:  rec.SellPriceMin,
		BuyPrice:   rec.BuyPriceMax,
		ObservedAt: observedAt(rec, fetchedAt),
	}, nil
}

// observedAt picks the freshest order date the service reported.
// The service uses the zero date for sides without data.
func observedAt(rec PriceRecord, fallback time.Time) time.Time {
	var latest time.Time
	for _, s := range []string{rec.SellPriceMinDate, rec.BuyPriceMaxDate} {
		if s == "" {
			continue
		}
		ts, err := time.Parse(dateLayout, s)
		if err != nil || ts.Year() <= 1 {
			continue
		}
		if ts.After(latest) {
			latest = ts
		}
	}
	if latest.IsZero() {
		return fallback
	}
	return latest
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
