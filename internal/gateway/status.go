package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrGatewayUnreachable means the status endpoint could not be reached even
// after the one allowed retry.
var ErrGatewayUnreachable = errors.New("gateway: status endpoint unreachable")

// Transaction status values reported by the gateway.
const (
	StatusSuccess = "TXN_SUCCESS"
	StatusFailure = "TXN_FAILURE"
	StatusPending = "PENDING"
)

type StatusResult struct {
	Status         string `json:"STATUS"`
	ResponseCode   string `json:"RESPCODE"`
	ResponseMsg    string `json:"RESPMSG"`
	TransactionID  string `json:"TXNID"`
	TransactionAmt string `json:"TXNAMOUNT"`
}

func (r StatusResult) Success() bool {
	return r.Status == StatusSuccess
}

// StatusClient performs the server-initiated "trust but verify" status query
// against the gateway.
type StatusClient struct {
	cfg        Config
	httpClient *http.Client
	backoff    time.Duration
}

func NewStatusClient(cfg Config) *StatusClient {
	return &StatusClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		backoff:    500 * time.Millisecond,
	}
}

// Check asks the gateway for the authoritative state of an order's
// transaction. A transport failure is retried exactly once; exhaustion is
// reported as ErrGatewayUnreachable.
func (s *StatusClient) Check(ctx context.Context, orderID string) (StatusResult, error) {
	params := map[string]string{
		"MID":     s.cfg.MerchantID,
		"ORDERID": orderID,
	}
	checksum, err := Sign(params, s.cfg.MerchantKey)
	if err != nil {
		return StatusResult{}, fmt.Errorf("failed to sign status query: %w", err)
	}

	body, err := json.Marshal(map[string]string{
		"MID":         params["MID"],
		"ORDERID":     params["ORDERID"],
		ChecksumField: checksum,
	})
	if err != nil {
		return StatusResult{}, fmt.Errorf("failed to marshal status query: %w", err)
	}

	var result StatusResult
	err = retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(s.backoff)), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.StatusURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return retry.RetryableError(fmt.Errorf("status endpoint returned %s", resp.Status))
		}

		payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := json.Unmarshal(payload, &result); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return StatusResult{}, err
		}
		return StatusResult{}, fmt.Errorf("%w: %s", ErrGatewayUnreachable, err)
	}

	return result, nil
}
