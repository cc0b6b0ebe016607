package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultFlutterwaveURL = "https://api.flutterwave.com/v3"

// FlutterwaveClient implements PaymentGateway against the Flutterwave v3 API.
type FlutterwaveClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewFlutterwaveClient(baseURL, secretKey string) *FlutterwaveClient {
	if baseURL == "" {
		baseURL = DefaultFlutterwaveURL
	}
	return &FlutterwaveClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type flwEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type flwTransaction struct {
	ID          int64   `json:"id"`
	TxRef       string  `json:"tx_ref"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	PaymentType string  `json:"payment_type"`
	AppFee      float64 `json:"app_fee"`
}

type flwRefundRequest struct {
	Amount float64 `json:"amount"`
}

func (c *FlutterwaveClient) VerifyTransaction(ctx context.Context, transactionID string) (*Verification, error) {
	var tx flwTransaction
	path := "/transactions/" + url.PathEscape(transactionID) + "/verify"
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &tx); err != nil {
		return nil, fmt.Errorf("flutterwave verify: %w", err)
	}

	return &Verification{
		TransactionID: strconv.FormatInt(tx.ID, 10),
		TxRef:         tx.TxRef,
		Status:        tx.Status,
		Amount:        tx.Amount,
		PaymentType:   tx.PaymentType,
		AppFee:        tx.AppFee,
	}, nil
}

func (c *FlutterwaveClient) Refund(ctx context.Context, transactionID string, amount float64) error {
	path := "/transactions/" + url.PathEscape(transactionID) + "/refund"
	if err := c.doRequest(ctx, http.MethodPost, path, flwRefundRequest{Amount: amount}, nil); err != nil {
		return fmt.Errorf("flutterwave refund: %w", err)
	}
	return nil
}

// doRequest sends an authenticated request and decodes the envelope's data
// field into out.
func (c *FlutterwaveClient) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrTransactionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("flutterwave API error (status %d): %s", resp.StatusCode, string(respBytes))
	}

	var env flwEnvelope
	if err := json.Unmarshal(respBytes, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Status != "success" {
		return fmt.Errorf("flutterwave API error: %s", env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
