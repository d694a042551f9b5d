package tradeset

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Outcome summarizes a resolved bet: which side won and by how much.
// CreatorWon is false both when the filler strictly wins and when the
// tally is tied (ties go to the filler).
type Outcome struct {
	WinsCount   int
	ValidTrades int
	IsTie       bool
	CreatorWon  bool
}

// ResolveTrade applies the up:K / down:K / flat:K rule to one trade,
// filling in ExitPrice, Won, and Cancelled in place. A trade with a zero
// entry or exit price, or an unrecognized method, is cancelled and does
// not count toward the tally.
func ResolveTrade(t *Trade, exitPrice *big.Int) error {
	t.ExitPrice = exitPrice

	if t.EntryPrice == nil || t.EntryPrice.Sign() == 0 || exitPrice == nil || exitPrice.Sign() == 0 {
		t.Cancelled = true
		t.Won = false
		return nil
	}

	kind, k, err := parseMethod(t.Method)
	if err != nil {
		t.Cancelled = true
		t.Won = false
		return nil
	}

	entry := t.EntryPrice
	pct := new(big.Int).Mul(entry, big.NewInt(int64(k)))
	pct.Div(pct, big.NewInt(100))

	switch kind {
	case "up":
		threshold := new(big.Int).Add(entry, pct)
		t.Won = exitPrice.Cmp(threshold) > 0
	case "down":
		threshold := new(big.Int).Sub(entry, pct)
		if threshold.Sign() < 0 {
			threshold.SetInt64(0)
		}
		t.Won = exitPrice.Cmp(threshold) < 0
	case "flat":
		diff := new(big.Int).Sub(exitPrice, entry)
		diff.Abs(diff)
		t.Won = diff.Cmp(pct) <= 0
	default:
		t.Cancelled = true
		t.Won = false
		return nil
	}

	t.Cancelled = false
	return nil
}

func parseMethod(method string) (kind string, k int, err error) {
	parts := strings.SplitN(method, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("tradeset: malformed method %q", method)
	}
	kind = parts[0]
	if kind != "up" && kind != "down" && kind != "flat" {
		return "", 0, fmt.Errorf("tradeset: unrecognized method kind %q", kind)
	}
	k, err = strconv.Atoi(parts[1])
	if err != nil || k < 0 || k > 100 {
		return "", 0, fmt.Errorf("tradeset: method %q threshold out of range 0-100", method)
	}
	return kind, k, nil
}

// Resolve applies ResolveTrade to every trade in ts against the
// positionally-matched exitPrices, then tallies the bet outcome. The
// side with strictly more wins across non-cancelled trades wins; a tie
// goes to the filler.
func Resolve(ts *TradeSet, exitPrices []*big.Int) (Outcome, error) {
	if len(exitPrices) != len(ts.Trades) {
		return Outcome{}, fmt.Errorf("tradeset: exit price count %d does not match trade count %d", len(exitPrices), len(ts.Trades))
	}

	wins := 0
	valid := 0
	for i := range ts.Trades {
		if err := ResolveTrade(&ts.Trades[i], exitPrices[i]); err != nil {
			return Outcome{}, err
		}
		if ts.Trades[i].Cancelled {
			continue
		}
		valid++
		if ts.Trades[i].Won {
			wins++
		}
	}

	losses := valid - wins
	isTie := wins == losses
	return Outcome{
		WinsCount:   wins,
		ValidTrades: valid,
		IsTie:       isTie,
		CreatorWon:  wins > losses,
	}, nil
}
