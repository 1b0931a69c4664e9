package rye

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/grattia/grattia-backend/pkg/config"
)

// Marketplace selects which Rye-integrated storefront a product id belongs to.
type Marketplace string

const (
	MarketplaceAmazon  Marketplace = "AMAZON"
	MarketplaceShopify Marketplace = "SHOPIFY"
)

// Product is a Rye catalog entry. Price values are quoted in cents.
type Product struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Vendor string  `json:"vendor"`
	Price  Price   `json:"price"`
	Images []Image `json:"images"`
}

// Price is Rye's money shape.
type Price struct {
	ValueCents   int64  `json:"value"`
	DisplayValue string `json:"displayValue"`
	Currency     string `json:"currency"`
}

// Image is one product photo.
type Image struct {
	URL string `json:"url"`
}

// PriceDollars converts the cent price to decimal dollars.
func (p *Product) PriceDollars() decimal.Decimal {
	return decimal.NewFromInt(p.Price.ValueCents).Div(decimal.NewFromInt(100))
}

// ImageURL returns the first product image, if any.
func (p *Product) ImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

const productByIDQuery = `query ProductByID($input: ProductByIDInput!) {
  productByID(input: $input) {
    id
    title
    vendor
    price { value displayValue currency }
    images { url }
  }
}`

const orderByIDQuery = `query OrderByID($id: ID!) {
  orderByID(id: $id) {
    id
    status
  }
}`

// Order is the fulfillment view of a placed Rye order.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client talks to the Rye GraphQL API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	shopperIP  string
}

// NewClient builds a Rye client from config.
func NewClient(cfg config.RyeConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("rye api key is required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.BaseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		shopperIP:  strings.TrimSpace(cfg.ShopperIP),
	}, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type productByIDResponse struct {
	Data struct {
		ProductByID *Product `json:"productByID"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// GetProduct fetches a single product by marketplace id.
func (c *Client) GetProduct(ctx context.Context, productID string, marketplace Marketplace) (*Product, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, errors.New("product id is required")
	}
	if marketplace == "" {
		marketplace = MarketplaceAmazon
	}

	payload := graphqlRequest{
		Query: productByIDQuery,
		Variables: map[string]any{
			"input": map[string]any{
				"id":          productID,
				"marketplace": string(marketplace),
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal rye query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rye request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.apiKey)
	if c.shopperIP != "" {
		req.Header.Set("Rye-Shopper-IP", c.shopperIP)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rye request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rye responded with status %d", resp.StatusCode)
	}

	var decoded productByIDResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode rye response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("rye query failed: %s", decoded.Errors[0].Message)
	}
	if decoded.Data.ProductByID == nil {
		return nil, fmt.Errorf("rye product %s not found", productID)
	}
	return decoded.Data.ProductByID, nil
}

type orderByIDResponse struct {
	Data struct {
		OrderByID *Order `json:"orderByID"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// GetOrder fetches the fulfillment status of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, errors.New("order id is required")
	}

	payload := graphqlRequest{
		Query:     orderByIDQuery,
		Variables: map[string]any{"id": orderID},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal rye query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rye request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.apiKey)
	if c.shopperIP != "" {
		req.Header.Set("Rye-Shopper-IP", c.shopperIP)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rye request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rye responded with status %d", resp.StatusCode)
	}

	var decoded orderByIDResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode rye response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("rye query failed: %s", decoded.Errors[0].Message)
	}
	if decoded.Data.OrderByID == nil {
		return nil, fmt.Errorf("rye order %s not found", orderID)
	}
	return decoded.Data.OrderByID, nil
}
