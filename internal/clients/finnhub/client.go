package finnhub

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Quote is the Finnhub real-time quote payload
type Quote struct {
	Current        float64 `json:"c"`
	Change         float64 `json:"d"`
	ChangePercent  float64 `json:"dp"`
	High           float64 `json:"h"`
	Low            float64 `json:"l"`
	Open           float64 `json:"o"`
	PreviousClose  float64 `json:"pc"`
	TimestampEpoch int64   `json:"t"`
}

// Client is a Finnhub API client used for real-time equity quotes
type Client struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
	log        zerolog.Logger
}

// NewClient creates a new Finnhub client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:    "https://finnhub.io/api/v1",
		apiKey:     apiKey,
		maxRetries: 3,
		log:        log.With().Str("client", "finnhub").Logger(),
	}
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetQuote fetches the real-time quote for a symbol with exponential backoff.
// Finnhub returns all-zero quotes for unknown symbols; those are treated as
// an error so callers can fall back to stored closes.
func (c *Client) GetQuote(symbol string) (*Quote, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		quote, err := c.fetchQuote(symbol)
		if err == nil {
			return quote, nil
		}

		lastErr = err
		if attempt < c.maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn().Err(err).
				Str("symbol", symbol).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Failed to fetch quote, retrying")
			time.Sleep(waitTime)
		}
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) fetchQuote(symbol string) (*Quote, error) {
	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("token", c.apiKey)

	resp, err := c.client.Get(c.baseURL + "/quote?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Finnhub API returned status %d: %s", resp.StatusCode, string(body))
	}

	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if quote.Current == 0 && quote.PreviousClose == 0 {
		return nil, fmt.Errorf("no quote data for symbol %s", symbol)
	}

	return &quote, nil
}
