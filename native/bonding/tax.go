package bonding

import (
	"github.com/holiman/uint256"

	"bondcurve/native/common"
)

// SplitTax divides total into the yield, burn and social shares, leaving the
// remainder as expense. Shares that exceed total fail with an underflow.
func SplitTax(total *uint256.Int, params ParamConfig) (TaxSplit, error) {
	total = common.Copy(total)
	yield, err := common.PerMille(total, uint64(params.YieldPercent))
	if err != nil {
		return TaxSplit{}, err
	}
	burn, err := common.PerMille(total, uint64(params.BurnPercent))
	if err != nil {
		return TaxSplit{}, err
	}
	social, err := common.PerMille(total, uint64(params.SocialPercent))
	if err != nil {
		return TaxSplit{}, err
	}
	expense, err := common.Sub(total, yield)
	if err != nil {
		return TaxSplit{}, err
	}
	if expense, err = common.Sub(expense, burn); err != nil {
		return TaxSplit{}, err
	}
	if expense, err = common.Sub(expense, social); err != nil {
		return TaxSplit{}, err
	}
	return TaxSplit{Total: total, Yield: yield, Burn: burn, Social: social, Expense: expense}, nil
}

func zeroTax() TaxSplit {
	return TaxSplit{
		Total:   common.Zero(),
		Yield:   common.Zero(),
		Burn:    common.Zero(),
		Social:  common.Zero(),
		Expense: common.Zero(),
	}
}
