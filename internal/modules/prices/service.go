package prices

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/clients/coingecko"
	"github.com/foliotrack/foliotrack/internal/clients/finnhub"
	"github.com/foliotrack/foliotrack/internal/clients/yahoo"
	"github.com/foliotrack/foliotrack/internal/modules/ledger"
)

// SecurityDirectory exposes the open positions whose prices the service
// maintains. Implemented by the lot ledger.
type SecurityDirectory interface {
	Symbols() []string
	SecurityInfo(symbol string) (ledger.SecurityType, string, bool)
	SetRealtimePrices(current, previousClose map[string]float64)
}

// Service fetches, stores and serves price data. Historical series are
// cached in per-symbol databases and refreshed from Yahoo; live quotes come
// from Finnhub for listed securities and CoinGecko for crypto, with a short
// TTL cache in front of both.
type Service struct {
	store     *Store
	yahoo     *yahoo.Client
	finnhub   *finnhub.Client
	coingecko *coingecko.Client
	directory SecurityDirectory

	quoteCache    *gocache.Cache
	historyPeriod string
	prevCloseTZ   *time.Location

	log zerolog.Logger
}

// NewService creates a new price service. prevCloseTZ is the reference
// timezone used to decide whether a crypto symbol's latest stored close is
// today's still-forming bar or yesterday's finished one.
func NewService(
	store *Store,
	yahooClient *yahoo.Client,
	finnhubClient *finnhub.Client,
	coingeckoClient *coingecko.Client,
	directory SecurityDirectory,
	historyPeriod string,
	quoteTTL time.Duration,
	prevCloseTZ *time.Location,
	log zerolog.Logger,
) *Service {
	if prevCloseTZ == nil {
		prevCloseTZ = time.UTC
	}
	return &Service{
		store:         store,
		yahoo:         yahooClient,
		finnhub:       finnhubClient,
		coingecko:     coingeckoClient,
		directory:     directory,
		quoteCache:    gocache.New(quoteTTL, 2*quoteTTL),
		historyPeriod: historyPeriod,
		prevCloseTZ:   prevCloseTZ,
		log:           log.With().Str("service", "prices").Logger(),
	}
}

// SyncHistory downloads and stores the daily close series for one symbol.
// Cash has no price series and is skipped.
func (s *Service) SyncHistory(symbol string) error {
	secType, _, ok := s.directory.SecurityInfo(symbol)
	if ok && secType == ledger.SecurityCash {
		return nil
	}

	fetchSymbol := symbol
	if secType == ledger.SecurityCrypto {
		fetchSymbol = yahoo.CryptoSymbol(symbol)
	}

	bars, err := s.yahoo.GetHistoricalPrices(fetchSymbol, s.historyPeriod)
	if err != nil {
		return fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}

	stored := make([]Bar, 0, len(bars))
	for _, b := range bars {
		stored = append(stored, Bar{
			Date:     b.Date.Format("2006-01-02"),
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			AdjClose: b.AdjClose,
			Volume:   b.Volume,
		})
	}
	return s.store.Upsert(symbol, stored)
}

// SyncAllHistory refreshes the stored series for every open position and
// returns the number of symbols updated
func (s *Service) SyncAllHistory() int {
	updated := 0
	for _, symbol := range s.directory.Symbols() {
		if err := s.SyncHistory(symbol); err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to sync price history")
			continue
		}
		updated++
	}
	return updated
}

// GetDailyCloses returns the stored close series for a symbol, downloading
// it first when nothing is stored yet
func (s *Service) GetDailyCloses(symbol string) ([]DailyClose, error) {
	closes, err := s.store.GetDailyCloses(symbol)
	if err != nil {
		return nil, err
	}
	if len(closes) > 0 {
		return closes, nil
	}

	if err := s.SyncHistory(symbol); err != nil {
		return nil, err
	}
	return s.store.GetDailyCloses(symbol)
}

// GetQuote returns the current and previous close price for one symbol,
// served from the TTL cache when fresh
func (s *Service) GetQuote(symbol string) (Quote, error) {
	if cached, found := s.quoteCache.Get(symbol); found {
		return cached.(Quote), nil
	}

	secType, companyName, _ := s.directory.SecurityInfo(symbol)

	var quote Quote
	var err error
	switch secType {
	case ledger.SecurityCash:
		quote = Quote{Symbol: symbol, Current: 1, PreviousClose: 1}
	case ledger.SecurityCrypto:
		quote, err = s.cryptoQuote(symbol, companyName)
	default:
		quote, err = s.equityQuote(symbol)
	}
	if err != nil {
		return Quote{}, err
	}

	s.quoteCache.SetDefault(symbol, quote)
	return quote, nil
}

func (s *Service) equityQuote(symbol string) (Quote, error) {
	q, err := s.finnhub.GetQuote(symbol)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to quote %s: %w", symbol, err)
	}
	return Quote{Symbol: symbol, Current: q.Current, PreviousClose: q.PreviousClose}, nil
}

// cryptoQuote prices a crypto position from CoinGecko by coin name, falling
// back to the latest stored close when the spot lookup fails
func (s *Service) cryptoQuote(symbol, companyName string) (Quote, error) {
	closes, err := s.store.LastCloses(symbol, 2)
	if err != nil {
		return Quote{}, err
	}

	current, spotErr := s.coingecko.GetSpotPrice(coingecko.CoinID(companyName))
	if spotErr != nil {
		if len(closes) == 0 {
			return Quote{}, fmt.Errorf("failed to quote crypto %s: %w", symbol, spotErr)
		}
		s.log.Warn().Err(spotErr).Str("symbol", symbol).Msg("CoinGecko lookup failed, using last stored close")
		current = closes[len(closes)-1].Close
	}

	return Quote{
		Symbol:        symbol,
		Current:       current,
		PreviousClose: s.cryptoPreviousClose(closes, current),
	}, nil
}

// cryptoPreviousClose picks the previous close from the last two stored
// closes. Crypto trades around the clock, so when the newest stored bar is
// today's (in the reference timezone) it is still forming and the bar before
// it is the real previous close.
func (s *Service) cryptoPreviousClose(closes []DailyClose, current float64) float64 {
	if len(closes) == 0 {
		return current
	}

	last := closes[len(closes)-1]
	today := time.Now().In(s.prevCloseTZ).Format("2006-01-02")
	if last.Date == today && len(closes) > 1 {
		return closes[len(closes)-2].Close
	}
	return last.Close
}

// RefreshAll fetches quotes for every open position concurrently and
// installs the snapshot on the directory. A symbol that fails to quote is
// logged and left out without blocking the rest.
func (s *Service) RefreshAll() int {
	symbols := s.directory.Symbols()
	if len(symbols) == 0 {
		s.directory.SetRealtimePrices(nil, nil)
		return 0
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		current  = make(map[string]float64, len(symbols))
		previous = make(map[string]float64, len(symbols))
	)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			quote, err := s.GetQuote(symbol)
			if err != nil {
				s.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to refresh quote")
				return
			}

			mu.Lock()
			current[symbol] = quote.Current
			previous[symbol] = quote.PreviousClose
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	s.directory.SetRealtimePrices(current, previous)
	s.log.Info().Int("updated", len(current)).Int("symbols", len(symbols)).Msg("Price snapshot refreshed")
	return len(current)
}
