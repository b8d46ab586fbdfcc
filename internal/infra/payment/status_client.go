package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"order-fulfillment/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// StatusResponse is the provider's server-side view of a transaction.
type StatusResponse struct {
	ProductCode     string      `json:"product_code"`
	TransactionUUID string      `json:"transaction_uuid"`
	TotalAmount     json.Number `json:"total_amount"`
	Status          string      `json:"status"`
	RefID           string      `json:"ref_id"`
}

// StatusClient queries the provider's transaction status endpoint.
type StatusClient struct {
	baseURL       string
	httpClient    *http.Client
	maxRetries    uint64
	retryInterval time.Duration
	log           *zap.Logger
}

func NewStatusClient(baseURL string, timeout time.Duration, maxRetries uint64, log *zap.Logger) *StatusClient {
	return &StatusClient{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: timeout},
		maxRetries:    maxRetries,
		retryInterval: 200 * time.Millisecond,
		log:           log,
	}
}

// Check retries network failures and 5xx answers. A 4xx answer or an
// unreadable body fails at once.
func (c *StatusClient) Check(ctx context.Context, productCode, totalAmount, transactionUUID string) (*StatusResponse, error) {
	q := url.Values{}
	q.Set("product_code", productCode)
	q.Set("total_amount", totalAmount)
	q.Set("transaction_uuid", transactionUUID)
	endpoint := c.baseURL + "?" + q.Encode()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxInterval = 4 * c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	var out *StatusResponse
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		resp, err := c.fetch(ctx, endpoint)
		if err != nil {
			c.log.Warn("payment status lookup failed",
				zap.String("transaction_uuid", transactionUUID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		out = resp
		return nil
	}, policy)
	if err != nil {
		if domain.KindOf(err) != "" {
			return nil, err
		}
		return nil, domain.VerificationFailed("status endpoint unreachable", err)
	}
	return out, nil
}

func (c *StatusClient) fetch(ctx context.Context, endpoint string) (*StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(domain.VerificationFailed(fmt.Sprintf("status endpoint returned %d", resp.StatusCode), nil))
	}

	var s StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, backoff.Permanent(domain.VerificationFailed("unreadable status response", err))
	}
	return &s, nil
}
