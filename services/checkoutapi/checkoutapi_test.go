package checkoutapi

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validContext() CheckoutContext {
	return CheckoutContext{
		CartItemUIDs:     []string{"item-1", "item-2"},
		Quantities:       []int{1, 2},
		TotalAmount:      50000,
		FinalAmount:      45000,
		DeliveryTip:      2000,
		AddressUID:       "addr-1",
		PromoCode:        "WELCOME",
		PromoDiscount:    5000,
		WalletUsed:       true,
		WalletAmountUsed: 10000,
		Currency:         "INR",
	}
}

func TestRoundTrip(t *testing.T) {
	orig := validContext()

	values, err := orig.ToForm()
	assert.NoError(t, err)

	got, err := NewFromValues(values)
	assert.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestDecodeFromValues(t *testing.T) {
	values := url.Values{}
	values.Set("cartItemUids", "item-1")
	values.Set("totalAmount", "500")
	values.Set("finalAmount", "500")
	values.Set("isSelfPickup", "true")
	values.Set("currency", "INR")

	got, err := NewFromValues(values)
	assert.NoError(t, err)
	assert.Equal(t, []string{"item-1"}, got.CartItemUIDs)
	assert.Equal(t, int64(500), got.FinalAmount)
	assert.True(t, got.IsSelfPickup)
	assert.NoError(t, got.Validate())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		adjust func(c *CheckoutContext)
		valid  bool
	}{
		{
			name:   "valid",
			adjust: func(c *CheckoutContext) {},
			valid:  true,
		},
		{
			name:   "empty cart",
			adjust: func(c *CheckoutContext) { c.CartItemUIDs = nil },
		},
		{
			name:   "quantity mismatch",
			adjust: func(c *CheckoutContext) { c.Quantities = []int{1} },
		},
		{
			name:   "negative amount",
			adjust: func(c *CheckoutContext) { c.TotalAmount = -1 },
		},
		{
			name:   "zero final amount",
			adjust: func(c *CheckoutContext) { c.FinalAmount = 0 },
		},
		{
			name:   "missing address",
			adjust: func(c *CheckoutContext) { c.AddressUID = "" },
		},
		{
			name: "self pickup needs no address",
			adjust: func(c *CheckoutContext) {
				c.AddressUID = ""
				c.IsSelfPickup = true
			},
			valid: true,
		},
		{
			name:   "wallet exceeds final amount",
			adjust: func(c *CheckoutContext) { c.WalletAmountUsed = 100000 },
		},
		{
			name: "wallet amount without flag",
			adjust: func(c *CheckoutContext) {
				c.WalletUsed = false
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := validContext()
			tc.adjust(&c)
			err := c.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGatewayAmount(t *testing.T) {
	c := validContext()
	assert.Equal(t, int64(35000), c.GatewayAmount())

	c.WalletUsed = false
	c.WalletAmountUsed = 0
	assert.Equal(t, int64(45000), c.GatewayAmount())
}
