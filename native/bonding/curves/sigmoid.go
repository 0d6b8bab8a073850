package curves

import (
	"github.com/holiman/uint256"

	"bondcurve/native/common"
)

// sigmoidPoint is one breakpoint of the sigmoid table in raw minor units.
// Prices are scaled by 10^6.
type sigmoidPoint struct {
	supply  uint64
	price   uint64
	reserve uint64
}

const sigmoidPriceScale = 1_000_000

// sigmoidMinPrice is quoted at zero supply.
const sigmoidMinPrice = 1

var sigmoidTable = [26]sigmoidPoint{
	{0, 0, 0},
	{10_000_000_000_000, 100_000, 500_000_000_000},
	{19_999_000_000_000, 200_000, 1_999_850_000_000},
	{20_000_000_000_000, 80_000_000, 2_039_950_000_000},
	{25_000_000_000_000, 120_000_000, 502_039_950_000_000},
	{30_000_000_000_000, 180_000_000, 1_252_039_950_000_000},
	{32_000_000_000_000, 280_000_000, 1_712_039_950_000_000},
	{34_000_000_000_000, 378_000_000, 2_370_039_950_000_000},
	{36_000_000_000_000, 504_000_000, 3_252_039_950_000_000},
	{38_000_000_000_000, 651_000_000, 4_407_039_950_000_000},
	{40_000_000_000_000, 1_000_000_000, 6_058_039_950_000_000},
	{42_000_000_000_000, 1_500_000_000, 8_558_039_950_000_000},
	{45_000_000_000_000, 2_500_000_000, 14_558_039_950_000_000},
	{47_500_000_000_000, 4_000_000_000, 22_683_039_950_000_000},
	{58_000_000_000_000, 15_000_000_000, 122_433_039_950_000_000},
	{61_000_000_000_000, 18_000_000_000, 171_933_039_950_000_000},
	{65_000_000_000_000, 22_000_000_000, 251_933_039_950_000_000},
	{69_000_000_000_000, 25_000_000_000, 345_933_039_950_000_000},
	{74_000_000_000_000, 27_500_000_000, 477_183_039_950_000_000},
	{80_000_000_000_000, 29_500_000_000, 648_183_039_950_000_000},
	{87_000_000_000_000, 31_000_000_000, 859_933_039_950_000_000},
	{95_000_000_000_000, 32_000_000_000, 1_111_933_039_950_000_000},
	{100_000_000_000_000, 32_500_000_000, 1_273_183_039_950_000_000},
	{110_000_000_000_000, 33_000_000_000, 1_600_683_039_950_000_000},
	{150_000_000_000_000, 33_500_000_000, 2_930_683_039_950_000_000},
	{200_000_000_000_000, 34_000_000_000, 4_618_183_039_950_000_000},
}

// sigmoidCurve interpolates the fixed table. It works on raw minor units and
// ignores decimal places.
type sigmoidCurve struct{}

func lastPoint() sigmoidPoint {
	return sigmoidTable[len(sigmoidTable)-1]
}

// supplySegment returns i such that table[i].supply < s <= table[i+1].supply.
// A supply equal to a breakpoint belongs to the segment below it.
func supplySegment(s *uint256.Int) int {
	for i := 0; i < len(sigmoidTable)-1; i++ {
		if s.GtUint64(sigmoidTable[i].supply) && !s.GtUint64(sigmoidTable[i+1].supply) {
			return i
		}
	}
	return 0
}

// reserveSegment returns i such that table[i].reserve < r <= table[i+1].reserve.
func reserveSegment(r *uint256.Int) int {
	for i := 0; i < len(sigmoidTable)-1; i++ {
		if r.GtUint64(sigmoidTable[i].reserve) && !r.GtUint64(sigmoidTable[i+1].reserve) {
			return i
		}
	}
	return 0
}

// SpotPrice returns MaxAmount past the last breakpoint.
func (sigmoidCurve) SpotPrice(supply *uint256.Int) (*uint256.Int, error) {
	s := common.Copy(supply)
	if s.GtUint64(lastPoint().supply) {
		return common.MaxAmount(), nil
	}
	if s.IsZero() {
		return uint256.NewInt(sigmoidMinPrice), nil
	}
	i := supplySegment(s)
	lo, hi := sigmoidTable[i], sigmoidTable[i+1]
	offset, err := common.Sub(s, uint256.NewInt(lo.supply))
	if err != nil {
		return nil, err
	}
	rise, err := common.MulDiv(offset, uint256.NewInt(hi.price-lo.price), uint256.NewInt(hi.supply-lo.supply))
	if err != nil {
		return nil, err
	}
	return common.Add(rise, uint256.NewInt(lo.price))
}

// Reserve clamps to the last table reserve past the last breakpoint.
func (sigmoidCurve) Reserve(supply *uint256.Int) (*uint256.Int, error) {
	s := common.Copy(supply)
	if s.IsZero() {
		return common.Zero(), nil
	}
	if s.GtUint64(lastPoint().supply) {
		return uint256.NewInt(lastPoint().reserve), nil
	}
	i := supplySegment(s)
	lo, hi := sigmoidTable[i], sigmoidTable[i+1]
	offset, err := common.Sub(s, uint256.NewInt(lo.supply))
	if err != nil {
		return nil, err
	}
	area, err := common.MulDiv(offset, uint256.NewInt(lo.price+hi.price), uint256.NewInt(2*sigmoidPriceScale))
	if err != nil {
		return nil, err
	}
	return common.Add(area, uint256.NewInt(lo.reserve))
}

// Supply returns zero for a zero reserve and for any reserve past the table.
func (sigmoidCurve) Supply(reserve *uint256.Int) (*uint256.Int, error) {
	r := common.Copy(reserve)
	if r.IsZero() || r.GtUint64(lastPoint().reserve) {
		return common.Zero(), nil
	}
	i := reserveSegment(r)
	lo, hi := sigmoidTable[i], sigmoidTable[i+1]
	offset, err := common.Sub(r, uint256.NewInt(lo.reserve))
	if err != nil {
		return nil, err
	}
	scaled, err := common.Mul(offset, uint256.NewInt(2*sigmoidPriceScale))
	if err != nil {
		return nil, err
	}
	width, err := common.Div(scaled, uint256.NewInt(lo.price+hi.price))
	if err != nil {
		return nil, err
	}
	return common.Add(width, uint256.NewInt(lo.supply))
}
