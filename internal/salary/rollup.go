package salary

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	types "github.com/yungbote/papaya-ledger/internal/domain"
	"github.com/yungbote/papaya-ledger/internal/domain/auth"
)

const DayLayout = "2006-01-02"

// Input is everything BuildRows reads. Transactions outside Day are ignored, so callers
// may pass a wider slice than needed.
type Input struct {
	Day          time.Time
	Location     *time.Location
	Config       types.SalaryConfig
	Transactions []*types.Transaction
	Members      []*types.Member
	// OnlyOwner keeps transactions of a single owner (case-insensitive) when non-empty.
	OnlyOwner string
}

type Row struct {
	Date       string          `json:"date"`
	MemberID   uuid.UUID       `json:"memberId"`
	Owner      string          `json:"owner"`
	Group      string          `json:"group"`
	Member     string          `json:"member"`
	TopUp      decimal.Decimal `json:"topUp"`
	Fiat       decimal.Decimal `json:"fiat"`
	Payout     decimal.Decimal `json:"payout"`
	PercBonus  decimal.Decimal `json:"percBonus"`
	FixedBonus decimal.Decimal `json:"fixedBonus"`
	TxCharge   decimal.Decimal `json:"txCharge"`
	Gross      decimal.Decimal `json:"gross"`
	Remaining  decimal.Decimal `json:"remaining"`
}

type accumulator struct {
	row           Row
	opening       decimal.Decimal
	memberRate    *decimal.Decimal
	percBonusAcc  decimal.Decimal
	fixedBonusAcc decimal.Decimal
}

// BuildRows computes one salary row per member with activity on in.Day.
func BuildRows(in Input) []Row {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	day := in.Day.In(loc)
	dayStr := day.Format(DayLayout)

	members := make(map[uuid.UUID]*types.Member, len(in.Members))
	for _, m := range in.Members {
		if m != nil {
			members[m.ID] = m
		}
	}

	byMember := map[string]*accumulator{}
	var order []string
	for _, t := range in.Transactions {
		if t == nil || !SameDay(t.OccurredAt, day, loc) {
			continue
		}
		if in.OnlyOwner != "" && !auth.SameOwner(t.OwnerName, in.OnlyOwner) {
			continue
		}

		key := t.MemberID.String()
		if t.MemberID == uuid.Nil {
			key = t.OwnerName + "|" + t.MemberName
		}
		acc, ok := byMember[key]
		if !ok {
			acc = &accumulator{row: Row{
				Date:     dayStr,
				MemberID: t.MemberID,
				Owner:    t.OwnerName,
				Group:    t.GroupName,
				Member:   t.MemberName,
			}}
			if m := members[t.MemberID]; m != nil {
				acc.opening = m.Opening
				acc.memberRate = m.BonusRateOverride
			}
			byMember[key] = acc
			order = append(order, key)
		}

		switch t.Type {
		case types.TypeTopUp:
			acc.row.TopUp = acc.row.TopUp.Add(t.Amount)
		case types.TypeFiatConvert:
			acc.row.Fiat = acc.row.Fiat.Add(t.Amount)
		case types.TypePayout:
			acc.row.Payout = acc.row.Payout.Add(t.Amount)
			acc.percBonusAcc = acc.percBonusAcc.Add(t.Amount.Mul(bonusRate(t, acc.memberRate, in.Config)))
			acc.fixedBonusAcc = acc.fixedBonusAcc.Add(in.Config.FixedPerTask)
		}
		acc.row.TxCharge = acc.row.TxCharge.Add(t.Fee)
	}

	rows := make([]Row, 0, len(order))
	for _, key := range order {
		acc := byMember[key]
		r := acc.row
		r.PercBonus = round2(acc.percBonusAcc)
		r.FixedBonus = round2(acc.fixedBonusAcc)
		r.Gross = round2(r.PercBonus.Add(r.FixedBonus))
		r.Remaining = round2(acc.opening.Add(r.Fiat).Add(r.TopUp).Sub(r.Payout).Sub(r.TxCharge).Sub(r.Gross))
		r.TopUp = round2(r.TopUp)
		r.Fiat = round2(r.Fiat)
		r.Payout = round2(r.Payout)
		r.TxCharge = round2(r.TxCharge)
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		oi, oj := strings.ToLower(rows[i].Owner), strings.ToLower(rows[j].Owner)
		if oi != oj {
			return oi < oj
		}
		return strings.ToLower(rows[i].Member) < strings.ToLower(rows[j].Member)
	})
	return rows
}

// bonusRate picks the transaction override, then the member override, then the configured rate.
func bonusRate(t *types.Transaction, memberRate *decimal.Decimal, cfg types.SalaryConfig) decimal.Decimal {
	if t.BonusRate != nil {
		return *t.BonusRate
	}
	if memberRate != nil {
		return *memberRate
	}
	return cfg.BonusRate
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DayBounds returns [start, end) of the calendar day containing t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
