// Package payments 第三方支付处理器客户端
//
// 只负责创建支付意向（payment intent），支付确认在客户端完成，
// 完成后由 POST /payments 落库。处理器通过 IntentCreator 接口注入，
// Handler 测试用桩实现替代真实 Stripe 调用。
package payments

import (
	"context"
	"math"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// IntentCreator 支付意向创建接口
type IntentCreator interface {
	// CreateIntent 为指定金额（主货币单位）创建支付意向，
	// 返回客户端确认用的 client secret
	CreateIntent(ctx context.Context, amount float64) (string, error)
}

// StripeClient Stripe 支付客户端
type StripeClient struct {
	currency string
}

// NewStripeClient 创建 Stripe 客户端
//
// secretKey 从 STRIPE_SECRET_KEY 环境变量注入，见 config 包。
func NewStripeClient(secretKey, currency string) *StripeClient {
	stripe.Key = secretKey
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeClient{currency: currency}
}

// CreateIntent 创建支付意向
func (c *StripeClient) CreateIntent(ctx context.Context, amount float64) (string, error) {
	// Stripe 金额以最小货币单位计
	cents := int64(math.Round(amount * 100))

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(cents),
		Currency:           stripe.String(c.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ClientSecret, nil
}
