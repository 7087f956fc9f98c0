package types

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletNormalize(t *testing.T) {
	wallet := Wallet{Copper: 53, Silver: 247, Electrum: 1, Gold: 86, Platinum: 2}
	assert.Equal(t, uint64(13173), wallet.TotalValue())

	normalized := wallet.Normalize()
	assert.Equal(t, Wallet{Copper: 3, Silver: 7, Gold: 1, Platinum: 13}, normalized)
	assert.Equal(t, wallet.TotalValue(), normalized.TotalValue())
	assert.Equal(t, "13 pp, 1 gp, 7 sp, 3 cp", normalized.String())
}

func TestWalletArithmetic(t *testing.T) {
	purse := Wallet{Gold: 5}
	purse = purse.Add(Wallet{Silver: 3})
	assert.Equal(t, uint64(530), purse.TotalValue())

	rest, err := purse.Sub(Wallet{Gold: 2, Copper: 5})
	require.NoError(t, err)
	assert.Equal(t, Wallet{Copper: 5, Silver: 2, Gold: 3}, rest)

	_, err = purse.Sub(Wallet{Platinum: 1})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.True(t, Wallet{}.IsEmpty())
	assert.Equal(t, "0 cp", Wallet{}.String())
}

func TestParseWallet(t *testing.T) {
	tests := []struct {
		input string
		want  Wallet
	}{
		{input: "5gp 3sp", want: Wallet{Gold: 5, Silver: 3}},
		{input: "2 pp, 1 ep", want: Wallet{Platinum: 2, Electrum: 1}},
		{input: "10 copper 10cp", want: Wallet{Copper: 20}},
		{input: "", want: Wallet{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseWallet(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"gp", "5 rubies", "-3gp"} {
		_, err := ParseWallet(bad)
		assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err), bad)
	}
}
