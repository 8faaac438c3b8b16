package checkout

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
)

func TestPreconditionSentinelsSurviveWrapping(t *testing.T) {
	wrapped := pkgerrors.Wrap(pkgerrors.CodeStateConflict, &EmptyCartError{}, "cannot place order")
	require.True(t, IsEmptyCart(wrapped))
	require.False(t, IsNoShippingAddress(wrapped))
	require.False(t, IsNoValidVoucher(wrapped))

	wrapped = pkgerrors.Wrap(pkgerrors.CodeStateConflict, &NoShippingAddressError{}, "cannot place order")
	require.True(t, IsNoShippingAddress(wrapped))

	total := decimal.RequireFromString("37.00")
	wrapped = pkgerrors.Wrap(pkgerrors.CodeStateConflict, &NoValidVoucherError{Total: total}, "cannot place order")
	require.True(t, IsNoValidVoucher(wrapped))

	var voucherErr *NoValidVoucherError
	require.True(t, errors.As(wrapped, &voucherErr))
	require.True(t, voucherErr.Total.Equal(total))
}

func TestSentinelHelpersRejectUnrelatedErrors(t *testing.T) {
	err := pkgerrors.New(pkgerrors.CodeInternal, "boom")
	require.False(t, IsEmptyCart(err))
	require.False(t, IsNoShippingAddress(err))
	require.False(t, IsNoValidVoucher(err))
	require.False(t, IsEmptyCart(nil))
}
