package coingecko

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client is a CoinGecko API client used for spot crypto prices.
// Lookups are by coin ID (the lowercased coin name, e.g. "bitcoin"),
// matching the simple/price endpoint.
type Client struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient creates a new CoinGecko client. baseURL defaults to the public
// API when empty.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &Client{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.With().Str("client", "coingecko").Logger(),
	}
}

// CoinID normalizes a coin name to the CoinGecko ID form
// ("Bitcoin" -> "bitcoin", "Ethereum Classic" -> "ethereum-classic")
func CoinID(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// GetSpotPrice fetches the current USD price for a coin ID
func (c *Client) GetSpotPrice(coinID string) (float64, error) {
	params := url.Values{}
	params.Add("ids", coinID)
	params.Add("vs_currencies", "usd")

	resp, err := c.client.Get(c.baseURL + "/simple/price?" + params.Encode())
	if err != nil {
		return 0, fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("CoinGecko API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	price, ok := result[coinID]["usd"]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("no price data for coin %s", coinID)
	}

	return price, nil
}
