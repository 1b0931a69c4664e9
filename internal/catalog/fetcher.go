package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/grattia/grattia-backend/pkg/goody"
	"github.com/grattia/grattia-backend/pkg/rye"
)

// ProviderProduct is the provider-neutral shape both catalog adapters
// translate their API responses into.
type ProviderProduct struct {
	ExternalID   string
	Name         string
	Description  string
	PriceDollars decimal.Decimal
	ImageURL     string
}

// ProductFetcher resolves an external product id into catalog metadata.
type ProductFetcher interface {
	FetchProduct(ctx context.Context, productID string) (*ProviderProduct, error)
}

// GoodyFetcher adapts the Goody REST client.
type GoodyFetcher struct {
	Client *goody.Client
}

func (f *GoodyFetcher) FetchProduct(ctx context.Context, productID string) (*ProviderProduct, error) {
	product, err := f.Client.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &ProviderProduct{
		ExternalID:   product.ID,
		Name:         product.Name,
		Description:  product.Subtitle,
		PriceDollars: product.PriceDollars(),
		ImageURL:     product.ImageURL(),
	}, nil
}

// RyeFetcher adapts the Rye GraphQL client.
type RyeFetcher struct {
	Client      *rye.Client
	Marketplace rye.Marketplace
}

func (f *RyeFetcher) FetchProduct(ctx context.Context, productID string) (*ProviderProduct, error) {
	product, err := f.Client.GetProduct(ctx, productID, f.Marketplace)
	if err != nil {
		return nil, err
	}
	return &ProviderProduct{
		ExternalID:   product.ID,
		Name:         product.Title,
		Description:  product.Vendor,
		PriceDollars: product.PriceDollars(),
		ImageURL:     product.ImageURL(),
	}, nil
}
