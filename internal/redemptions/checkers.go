package redemptions

import (
	"context"
	"fmt"
	"strings"

	"github.com/grattia/grattia-backend/pkg/enums"
	"github.com/grattia/grattia-backend/pkg/goody"
	"github.com/grattia/grattia-backend/pkg/rye"
)

// GoodyChecker adapts the Goody order endpoint to the fulfillment sync.
type GoodyChecker struct {
	Client *goody.Client
}

func (c *GoodyChecker) CheckOrder(ctx context.Context, orderID string) (enums.RedemptionStatus, error) {
	order, err := c.Client.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	return mapProviderStatus(order.Status)
}

// RyeChecker adapts the Rye order query to the fulfillment sync.
type RyeChecker struct {
	Client *rye.Client
}

func (c *RyeChecker) CheckOrder(ctx context.Context, orderID string) (enums.RedemptionStatus, error) {
	order, err := c.Client.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	return mapProviderStatus(order.Status)
}

// mapProviderStatus folds provider status vocabularies into the redemption
// state machine. Both providers use slight variations of the same lifecycle.
func mapProviderStatus(raw string) (enums.RedemptionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "created", "pending", "submitted", "placed":
		return enums.RedemptionStatusPending, nil
	case "processing", "in_progress", "accepted":
		return enums.RedemptionStatusProcessing, nil
	case "shipped", "in_transit":
		return enums.RedemptionStatusShipped, nil
	case "delivered", "completed", "succeeded":
		return enums.RedemptionStatusDelivered, nil
	case "canceled", "cancelled", "failed", "refunded":
		return enums.RedemptionStatusCanceled, nil
	}
	return "", fmt.Errorf("unknown provider order status %q", raw)
}
