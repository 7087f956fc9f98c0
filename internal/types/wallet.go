package types

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

type Currency string

const (
	CurrencyCopper   Currency = "cp"
	CurrencySilver   Currency = "sp"
	CurrencyElectrum Currency = "ep"
	CurrencyGold     Currency = "gp"
	CurrencyPlatinum Currency = "pp"
)

// Multiplier is the coin's value in copper.
func (c Currency) Multiplier() uint64 {
	switch c {
	case CurrencySilver:
		return 10
	case CurrencyElectrum:
		return 50
	case CurrencyGold:
		return 100
	case CurrencyPlatinum:
		return 1000
	default:
		return 1
	}
}

func ParseCurrency(value string) (Currency, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "cp", "copper":
		return CurrencyCopper, nil
	case "sp", "silver":
		return CurrencySilver, nil
	case "ep", "electrum":
		return CurrencyElectrum, nil
	case "gp", "gold":
		return CurrencyGold, nil
	case "pp", "platinum":
		return CurrencyPlatinum, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown currency %q", value))
	}
}

type Wallet struct {
	Copper   uint64 `yaml:"copper,omitempty" json:"copper,omitempty"`
	Silver   uint64 `yaml:"silver,omitempty" json:"silver,omitempty"`
	Electrum uint64 `yaml:"electrum,omitempty" json:"electrum,omitempty"`
	Gold     uint64 `yaml:"gold,omitempty" json:"gold,omitempty"`
	Platinum uint64 `yaml:"platinum,omitempty" json:"platinum,omitempty"`
}

// TotalValue is the wallet's worth in copper.
func (w Wallet) TotalValue() uint64 {
	return w.Copper*CurrencyCopper.Multiplier() +
		w.Silver*CurrencySilver.Multiplier() +
		w.Electrum*CurrencyElectrum.Multiplier() +
		w.Gold*CurrencyGold.Multiplier() +
		w.Platinum*CurrencyPlatinum.Multiplier()
}

// Normalize re-expresses the total value with the fewest coins, never
// minting electrum.
func (w Wallet) Normalize() Wallet {
	total := w.TotalValue()
	var out Wallet
	out.Platinum, total = total/CurrencyPlatinum.Multiplier(), total%CurrencyPlatinum.Multiplier()
	out.Gold, total = total/CurrencyGold.Multiplier(), total%CurrencyGold.Multiplier()
	out.Silver, total = total/CurrencySilver.Multiplier(), total%CurrencySilver.Multiplier()
	out.Copper = total
	return out
}

func (w Wallet) Add(other Wallet) Wallet {
	return Wallet{
		Copper:   w.Copper + other.Copper,
		Silver:   w.Silver + other.Silver,
		Electrum: w.Electrum + other.Electrum,
		Gold:     w.Gold + other.Gold,
		Platinum: w.Platinum + other.Platinum,
	}
}

// Sub removes value from the wallet, making change as needed.
func (w Wallet) Sub(other Wallet) (Wallet, error) {
	have, want := w.TotalValue(), other.TotalValue()
	if want > have {
		return w, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("insufficient funds: have %d cp, need %d cp", have, want))
	}
	return Wallet{Copper: have - want}.Normalize(), nil
}

func (w Wallet) IsEmpty() bool {
	return w.TotalValue() == 0
}

func (w Wallet) Amount(c Currency) uint64 {
	switch c {
	case CurrencySilver:
		return w.Silver
	case CurrencyElectrum:
		return w.Electrum
	case CurrencyGold:
		return w.Gold
	case CurrencyPlatinum:
		return w.Platinum
	default:
		return w.Copper
	}
}

func (w *Wallet) add(c Currency, amount uint64) {
	switch c {
	case CurrencySilver:
		w.Silver += amount
	case CurrencyElectrum:
		w.Electrum += amount
	case CurrencyGold:
		w.Gold += amount
	case CurrencyPlatinum:
		w.Platinum += amount
	default:
		w.Copper += amount
	}
}

func (w Wallet) String() string {
	var parts []string
	for _, c := range []Currency{CurrencyPlatinum, CurrencyGold, CurrencyElectrum, CurrencySilver, CurrencyCopper} {
		if amount := w.Amount(c); amount > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", amount, c))
		}
	}
	if len(parts) == 0 {
		return "0 cp"
	}
	return strings.Join(parts, ", ")
}

// ParseWallet reads amounts like "5gp 3 sp, 2pp".
func ParseWallet(value string) (Wallet, error) {
	var wallet Wallet
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	for i := 0; i < len(fields); i++ {
		field := fields[i]
		split := strings.IndexFunc(field, func(r rune) bool { return !unicode.IsDigit(r) })
		digits, unit := field, ""
		if split >= 0 {
			digits, unit = field[:split], field[split:]
		}
		if unit == "" && i+1 < len(fields) {
			i++
			unit = fields[i]
		}
		amount, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			return Wallet{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid coin amount %q", field))
		}
		currency, err := ParseCurrency(unit)
		if err != nil {
			return Wallet{}, err
		}
		wallet.add(currency, amount)
	}
	return wallet, nil
}
