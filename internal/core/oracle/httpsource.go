package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/venuecore/ticketd/internal/core/price"
)

// HTTPSource reads oracle prices from a JSON HTTP endpoint. The endpoint
// is queried as GET <base>?pair=<pair> and must answer with
// {"price": "<decimal>", "timestamp": <unix seconds>}.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates an HTTP oracle source with the given request
// timeout.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type oracleResponse struct {
	Price     string `json:"price"`
	Timestamp uint64 `json:"timestamp"`
}

// LatestPrice implements Source.
func (s *HTTPSource) LatestPrice(ctx context.Context, pair string) (price.Price, uint64, error) {
	u := fmt.Sprintf("%s?pair=%s", s.baseURL, url.QueryEscape(pair))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return price.Price{}, 0, fmt.Errorf("oracle request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return price.Price{}, 0, fmt.Errorf("oracle query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return price.Price{}, 0, fmt.Errorf("oracle query: unexpected status %d", resp.StatusCode)
	}

	var body oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return price.Price{}, 0, fmt.Errorf("oracle response: %w", err)
	}
	p, err := price.ParseDecimal(body.Price)
	if err != nil {
		return price.Price{}, 0, fmt.Errorf("oracle response price: %w", err)
	}
	return p, body.Timestamp, nil
}
