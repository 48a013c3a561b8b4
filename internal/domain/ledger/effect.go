package ledger

import "github.com/shopspring/decimal"

// Effect is the signed delta a transaction contributes to its member's counters.
type Effect struct {
	Received decimal.Decimal `json:"received"`
	PaidOut  decimal.Decimal `json:"paidOut"`
	Frozen   decimal.Decimal `json:"frozen"`
	Runaway  decimal.Decimal `json:"runaway"`
	Charges  decimal.Decimal `json:"charges"`
}

// EffectOf maps (type, amount, fee) to counter deltas; sign is +1 to apply, -1 to revert.
func EffectOf(t TransactionType, amount, fee decimal.Decimal, sign int) Effect {
	s := decimal.NewFromInt(int64(sign))
	amt := amount.Mul(s)
	var e Effect
	switch t {
	case TypeTopUp, TypeFiatConvert:
		e.Received = amt
	case TypePayout:
		e.PaidOut = amt
	case TypeFrozen:
		e.Frozen = amt
	case TypeRunaway:
		e.Runaway = amt
	}
	if t.Chargeable() && fee.IsPositive() {
		e.Charges = fee.Mul(s)
	}
	return e
}

// EffectOfTransaction is EffectOf over a stored record.
func EffectOfTransaction(tx *Transaction, sign int) Effect {
	if tx == nil {
		return Effect{}
	}
	return EffectOf(tx.Type, tx.Amount, tx.Fee, sign)
}

func (e Effect) Add(o Effect) Effect {
	return Effect{
		Received: e.Received.Add(o.Received),
		PaidOut:  e.PaidOut.Add(o.PaidOut),
		Frozen:   e.Frozen.Add(o.Frozen),
		Runaway:  e.Runaway.Add(o.Runaway),
		Charges:  e.Charges.Add(o.Charges),
	}
}

func (e Effect) IsZero() bool {
	return e.Received.IsZero() && e.PaidOut.IsZero() && e.Frozen.IsZero() && e.Runaway.IsZero() && e.Charges.IsZero()
}

func (e Effect) Equal(o Effect) bool {
	return e.Received.Equal(o.Received) &&
		e.PaidOut.Equal(o.PaidOut) &&
		e.Frozen.Equal(o.Frozen) &&
		e.Runaway.Equal(o.Runaway) &&
		e.Charges.Equal(o.Charges)
}
