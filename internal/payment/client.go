package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	SandboxBaseURL = "https://sandbox.intasend.com"
	LiveBaseURL    = "https://payment.intasend.com"

	stkPushPath = "/api/v1/payment/mpesa-stk-push/"
	statusPath  = "/api/v1/payment/status/"
)

var ErrNotConfigured = errors.New("payment provider is not configured")

type STKPushRequest struct {
	Amount      decimal.Decimal
	PhoneNumber string
	Email       string
	Narrative   string
	APIRef      string
	Currency    string
}

type Invoice struct {
	InvoiceID    string  `json:"invoice_id"`
	State        string  `json:"state"`
	Provider     string  `json:"provider"`
	Value        string  `json:"value"`
	APIRef       string  `json:"api_ref"`
	FailedReason *string `json:"failed_reason"`
}

// Gateway - то, что сервис использует от платежного провайдера.
type Gateway interface {
	STKPush(ctx context.Context, req STKPushRequest) (*Invoice, error)
	Status(ctx context.Context, invoiceID string) (*Invoice, error)
}

type Client struct {
	baseURL        string
	secretKey      string
	publishableKey string
	httpClient     *http.Client
}

// NewClient выбирает sandbox или боевой адрес по testMode, если baseURL пуст.
func NewClient(baseURL, secretKey, publishableKey string, testMode bool, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = LiveBaseURL
		if testMode {
			baseURL = SandboxBaseURL
		}
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		secretKey:      secretKey,
		publishableKey: publishableKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Configured() bool {
	return c.secretKey != ""
}

type stkPushBody struct {
	Amount      json.Number `json:"amount"`
	PhoneNumber string      `json:"phone_number"`
	Email       string      `json:"email,omitempty"`
	Narrative   string      `json:"narrative"`
	APIRef      string      `json:"api_ref"`
	Currency    string      `json:"currency,omitempty"`
	PublicKey   string      `json:"public_key,omitempty"`
}

type invoiceEnvelope struct {
	Invoice *Invoice `json:"invoice"`
}

func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*Invoice, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body := stkPushBody{
		Amount:      json.Number(req.Amount.StringFixed(2)),
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Narrative:   req.Narrative,
		APIRef:      req.APIRef,
		Currency:    req.Currency,
		PublicKey:   c.publishableKey,
	}

	invoice, err := c.post(ctx, stkPushPath, body)
	if err != nil {
		return nil, fmt.Errorf("stk push for %s: %w", req.APIRef, err)
	}

	log.Info().
		Str("invoice_id", invoice.InvoiceID).
		Str("state", invoice.State).
		Str("api_ref", req.APIRef).
		Msg("payment: stk push accepted")
	return invoice, nil
}

func (c *Client) Status(ctx context.Context, invoiceID string) (*Invoice, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	invoice, err := c.post(ctx, statusPath, map[string]string{"invoice_id": invoiceID})
	if err != nil {
		return nil, fmt.Errorf("status for invoice %s: %w", invoiceID, err)
	}
	return invoice, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*Invoice, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var envelope invoiceEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Invoice == nil || envelope.Invoice.InvoiceID == "" {
		return nil, errors.New("response has no invoice")
	}
	return envelope.Invoice, nil
}
