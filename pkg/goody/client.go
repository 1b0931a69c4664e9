package goody

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/grattia/grattia-backend/pkg/config"
)

// Product is a Goody commerce catalog entry. Prices are quoted in cents.
type Product struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Subtitle   string  `json:"subtitle"`
	PriceCents int64   `json:"price"`
	Images     []Image `json:"images"`
}

// Image is one product photo.
type Image struct {
	URL string `json:"image_url"`
}

// PriceDollars converts the cent price to decimal dollars.
func (p *Product) PriceDollars() decimal.Decimal {
	return decimal.NewFromInt(p.PriceCents).Div(decimal.NewFromInt(100))
}

// ImageURL returns the first product image, if any.
func (p *Product) ImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// Client talks to the Goody commerce REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient builds a Goody client from config.
func NewClient(cfg config.GoodyConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("goody api key is required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
	}, nil
}

// Order is the fulfillment view of a placed Goody order.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// GetOrder fetches the fulfillment status of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, errors.New("order id is required")
	}

	url := fmt.Sprintf("%s/v1/orders/%s", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build goody request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("goody request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("goody order %s not found", orderID)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("goody responded with status %d", resp.StatusCode)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode goody order: %w", err)
	}
	return &order, nil
}

// GetProduct fetches a single catalog product by id.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, errors.New("product id is required")
	}

	url := fmt.Sprintf("%s/v1/products/%s", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build goody request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("goody request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("goody product %s not found", productID)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("goody responded with status %d", resp.StatusCode)
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("decode goody product: %w", err)
	}
	if product.ID == "" {
		product.ID = productID
	}
	return &product, nil
}
