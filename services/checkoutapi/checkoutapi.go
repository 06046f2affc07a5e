package checkoutapi

import (
	"fmt"
	"net/http"
	"net/url"

	formcodec "github.com/go-playground/form/v4"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
)

// CheckoutContext is the immutable snapshot of what is being purchased. It is
// assembled by the cart/address/promo collaborators, decoded once at saga
// start and passed by value from there on.
type CheckoutContext struct {
	CartItemUIDs     []string `form:"cartItemUids"`
	Quantities       []int    `form:"quantities"`
	TotalAmount      int64    `form:"totalAmount"`
	FinalAmount      int64    `form:"finalAmount"`
	DeliveryTip      int64    `form:"deliveryTip"`
	IsSelfPickup     bool     `form:"isSelfPickup"`
	AddressUID       string   `form:"addressUid"`
	PromoCode        string   `form:"promoCode"`
	PromoDiscount    int64    `form:"promoDiscount"`
	WalletUsed       bool     `form:"walletUsed"`
	WalletAmountUsed int64    `form:"walletAmountUsed"`
	Currency         string   `form:"currency"`
	ShopperEmail     string   `form:"shopper.email"`
	ShopperMobile    string   `form:"shopper.mobile"`
}

func NewFromRequest(r *http.Request) (CheckoutContext, error) {
	err := r.ParseForm()
	if err != nil {
		return CheckoutContext{}, myerrors.NewInvalidInputError(err)
	}
	return NewFromValues(r.Form)
}

func NewFromValues(values url.Values) (CheckoutContext, error) {
	checkout := CheckoutContext{}
	err := formcodec.NewDecoder().Decode(&checkout, values)
	if err != nil {
		return checkout, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}

	return checkout, nil
}

func (c CheckoutContext) ToForm() (url.Values, error) {
	values, err := formcodec.NewEncoder().Encode(c)
	if err != nil {
		return nil, fmt.Errorf("error encoding form: %s", err)
	}

	return values, nil
}

// Validate rejects a context before any side effect occurs.
func (c CheckoutContext) Validate() error {
	if len(c.CartItemUIDs) == 0 {
		return myerrors.NewInvalidInputErrorf("cart is empty")
	}
	if len(c.Quantities) != 0 && len(c.Quantities) != len(c.CartItemUIDs) {
		return myerrors.NewInvalidInputErrorf("quantities do not match cart items")
	}
	if c.TotalAmount < 0 || c.FinalAmount < 0 {
		return myerrors.NewInvalidInputErrorf("negative amount")
	}
	if c.FinalAmount == 0 {
		return myerrors.NewInvalidInputErrorf("nothing to pay")
	}
	if !c.IsSelfPickup && c.AddressUID == "" {
		return myerrors.NewInvalidInputErrorf("missing delivery address")
	}
	if c.WalletUsed && c.WalletAmountUsed > c.FinalAmount {
		return myerrors.NewInvalidInputErrorf("wallet amount exceeds final amount")
	}
	if !c.WalletUsed && c.WalletAmountUsed != 0 {
		return myerrors.NewInvalidInputErrorf("wallet amount without wallet flag")
	}
	return nil
}

// GatewayAmount is the effective amount charged to the external gateway,
// computed once at saga start and never re-derived.
func (c CheckoutContext) GatewayAmount() int64 {
	if !c.WalletUsed {
		return c.FinalAmount
	}
	return c.FinalAmount - c.WalletAmountUsed
}
