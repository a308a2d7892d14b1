package ledger

import (
	"fmt"

	"github.com/baharkarakas/tpay-mfs/internal/config"
	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/shopspring/decimal"
)

type FeeMode string

const (
	// FeePassthrough credits the cash-out surcharge to the agent.
	FeePassthrough FeeMode = "passthrough"
	// FeeSink removes the surcharge from circulation.
	FeeSink FeeMode = "sink"
)

// Policy holds minimums and fees. Unit fields are whole currency units.
type Policy struct {
	MinSend    int64
	MinCashOut int64
	MinCashIn  int64

	SendFeeThreshold int64 // flat fee applies from this amount up
	SendFlatFee      int64

	CashOutFeeBps  int64 // 150 = 1.5%
	CashOutFeeMode FeeMode

	MaxTransfer int64 // per-transfer ceiling; 0 means maxQuotable
}

// maxQuotable leaves headroom for fees and for credits landing on large
// balances without overflowing int64 minor units.
const maxQuotable = models.MaxUnits / 4

func DefaultPolicy() Policy {
	return Policy{
		MinSend:          50,
		MinCashOut:       50,
		MinCashIn:        50,
		SendFeeThreshold: 100,
		SendFlatFee:      5,
		CashOutFeeBps:    150,
		CashOutFeeMode:   FeePassthrough,
		MaxTransfer:      1_000_000_000,
	}
}

func PolicyFromConfig(c config.LedgerConfig) Policy {
	mode := FeeMode(c.CashOutFeeMode)
	if mode != FeeSink {
		mode = FeePassthrough
	}
	return Policy{
		MinSend:          c.MinSend,
		MinCashOut:       c.MinCashOut,
		MinCashIn:        c.MinCashIn,
		SendFeeThreshold: c.SendFeeThreshold,
		SendFlatFee:      c.SendFlatFee,
		CashOutFeeBps:    c.CashOutFeeBps,
		CashOutFeeMode:   mode,
		MaxTransfer:      c.MaxTransfer,
	}
}

// Quote is the money movement of one transfer. Debit leaves the source,
// Credit reaches the destination; Debit-Credit is the fee sink.
type Quote struct {
	Principal models.Amount
	Fee       models.Amount
	Debit     models.Amount
	Credit    models.Amount
}

func (p Policy) minimum(kind models.TransactionType) int64 {
	switch kind {
	case models.TxnCashOut:
		return p.MinCashOut
	case models.TxnCashIn:
		return p.MinCashIn
	}
	return p.MinSend
}

func (p Policy) ceiling() int64 {
	if p.MaxTransfer <= 0 || p.MaxTransfer > maxQuotable {
		return maxQuotable
	}
	return p.MaxTransfer
}

// Quote prices a transfer of units whole currency units.
func (p Policy) Quote(kind models.TransactionType, units int64) (Quote, error) {
	if floor := p.minimum(kind); units < floor || units <= 0 {
		return Quote{}, fmt.Errorf("%w: minimum %s is %d", ErrInvalidAmount, kind, max(floor, 1))
	}
	if ceiling := p.ceiling(); units > ceiling {
		return Quote{}, fmt.Errorf("%w: maximum %s is %d", ErrInvalidAmount, kind, ceiling)
	}
	q := Quote{Principal: models.Units(units)}

	switch kind {
	case models.TxnSend:
		if units >= p.SendFeeThreshold {
			q.Fee = models.Units(p.SendFlatFee)
		}
		q.Debit = q.Principal + q.Fee
		q.Credit = q.Principal
	case models.TxnCashOut:
		rate := decimal.New(p.CashOutFeeBps, -4)
		q.Fee = models.Amount(decimal.NewFromInt(int64(q.Principal)).Mul(rate).Round(0).IntPart())
		q.Debit = q.Principal + q.Fee
		q.Credit = q.Principal
		if p.CashOutFeeMode == FeePassthrough {
			q.Credit = q.Debit
		}
	case models.TxnCashIn:
		q.Debit = q.Principal
		q.Credit = q.Principal
	default:
		return Quote{}, fmt.Errorf("%w: unknown transfer kind %q", ErrInternal, kind)
	}
	return q, nil
}
