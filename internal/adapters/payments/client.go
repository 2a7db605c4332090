package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"eventgate/internal/domain"
)

// Client calls the external payment gateway's invoice API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient returns a PaymentGateway backed by the gateway's HTTP API.
// timeout bounds every gateway call so a slow gateway cannot hold a request
// indefinitely.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

var _ domain.PaymentGateway = (*Client)(nil)

type createInvoiceRequest struct {
	AmountCents   int64  `json:"amount_cents"`
	Description   string `json:"description"`
	CustomerEmail string `json:"customer_email"`
}

type invoiceResponse struct {
	ID         string `json:"id"`
	InvoiceURL string `json:"invoice_url"`
	Status     string `json:"status"`
}

func (c *Client) CreateInvoice(ctx context.Context, amountCents int64, description, customerEmail string) (*domain.Invoice, error) {
	body, err := json.Marshal(createInvoiceRequest{
		AmountCents:   amountCents,
		Description:   description,
		CustomerEmail: customerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/invoices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment gateway returned status: %d", resp.StatusCode)
	}

	var data invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode invoice response: %w", err)
	}
	return &domain.Invoice{ID: data.ID, URL: data.InvoiceURL}, nil
}

func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (domain.InvoiceStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/invoices/"+invoiceID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payment gateway returned status: %d", resp.StatusCode)
	}

	var data invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode invoice response: %w", err)
	}

	switch domain.InvoiceStatus(data.Status) {
	case domain.InvoicePaid, domain.InvoiceExpired, domain.InvoiceFailed, domain.InvoicePending:
		return domain.InvoiceStatus(data.Status), nil
	default:
		return "", fmt.Errorf("unknown invoice status: %q", data.Status)
	}
}
