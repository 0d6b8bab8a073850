package bonding

import (
	"github.com/holiman/uint256"

	"bondcurve/native/bonding/curves"
	"bondcurve/native/common"
)

const (
	// PlaceholderAccount marks a routing slot that has not been configured.
	PlaceholderAccount = "none"
	// ContractMinter is the minter tag that authorises the engine to mint.
	ContractMinter = "contract"
	// DefaultPresalePrice is written at instantiation.
	DefaultPresalePrice uint32 = 200
	// DefaultProtocolFee is the per-mille fee withheld from every buy.
	DefaultProtocolFee uint64 = 5

	// UnstakeMarker and DexferMarker are the tracking amounts sent on sell.
	UnstakeMarker uint64 = 101
	DexferMarker  uint64 = 102
	// UnstakePeriod is reported on every sell.
	UnstakePeriod = "21 Days"
)

// CurveState is the singleton settlement record. ReserveDenom and Decimals
// never change after instantiation.
type CurveState struct {
	Reserve      *uint256.Int
	Supply       *uint256.Int
	ReserveDenom string
	Decimals     curves.DecimalPlaces
	TaxCollected *uint256.Int
}

// NewCurveState returns an empty curve state for the reserve denomination.
func NewCurveState(denom string, places curves.DecimalPlaces) *CurveState {
	return &CurveState{
		Reserve:      common.Zero(),
		Supply:       common.Zero(),
		ReserveDenom: denom,
		Decimals:     places,
		TaxCollected: common.Zero(),
	}
}

// ParamConfig holds fee percentages in parts per 1000. Expense is always
// taken as the remainder of the tax, so its percentage is informational.
type ParamConfig struct {
	YieldPercent     uint32 `json:"yield_percent"`
	BurnPercent      uint32 `json:"burn_percent"`
	SocialPercent    uint32 `json:"social_percent"`
	ExpensePercent   uint32 `json:"expense_percent"`
	AffiliatePercent uint32 `json:"affiliate_percent"`
	TaxPercent       uint32 `json:"tax_percent"`
	// PresalePrice is reserve minor units per whole token; 0 disables presale.
	PresalePrice uint32 `json:"presale_price"`
}

// AcctConfig routes fees. Owner is fixed at instantiation.
type AcctConfig struct {
	Owner       string `json:"owner"`
	PresaleAcct string `json:"presale_acct"`
	YieldAcct   string `json:"yield_acct"`
	BurnAcct    string `json:"burn_acct"`
	SocialAcct  string `json:"social_acct"`
	ExpenseAcct string `json:"expense_acct"`
	StakeAcct   string `json:"stake_acct"`
	UnstakeAcct string `json:"unstake_acct"`
}

// AcctRouting is the owner-mutable part of AcctConfig.
type AcctRouting struct {
	PresaleAcct string `json:"presale_acct"`
	YieldAcct   string `json:"yield_acct"`
	BurnAcct    string `json:"burn_acct"`
	SocialAcct  string `json:"social_acct"`
	ExpenseAcct string `json:"expense_acct"`
	StakeAcct   string `json:"stake_acct"`
	UnstakeAcct string `json:"unstake_acct"`
}

// DexferConfig configures the liquidity-transfer role.
type DexferConfig struct {
	DexferManager  string `json:"dexfer_manager"`
	DepositPercent uint32 `json:"deposit_percent"`
	TaxExempt      string `json:"tax_exempt"`
	TokenMinter    string `json:"token_minter"`
}

// SafetyConfig gates buys and sells. Each switch is common.OpenGate or the
// single address allowed through.
type SafetyConfig struct {
	CanBuy  string `json:"can_buy"`
	CanSell string `json:"can_sell"`
}

// InstantiateMsg configures a new bonding curve instance.
type InstantiateMsg struct {
	Name            string
	Symbol          string
	Decimals        uint8
	ReserveDenom    string
	ReserveDecimals uint8
	CurveType       curves.CurveType
}

// Coin is an amount of a single denomination.
type Coin struct {
	Denom  string
	Amount *uint256.Int
}

// NewCoin builds a coin from a uint64 amount.
func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: uint256.NewInt(amount)}
}

// MessageInfo identifies the caller and the funds attached to a call.
type MessageInfo struct {
	Sender string
	Funds  []Coin
}

// Transfer is an outbound fund-transfer instruction.
type Transfer struct {
	To     string
	Denom  string
	Amount *uint256.Int
}

// MintInstruction records the tokens minted to a recipient.
type MintInstruction struct {
	Recipient string
	Amount    *uint256.Int
}

// Attribute is one key/value pair of the audit record.
type Attribute struct {
	Key   string
	Value string
}

// TaxSplit decomposes a tax amount; the four shares sum to Total.
type TaxSplit struct {
	Total   *uint256.Int
	Yield   *uint256.Int
	Burn    *uint256.Int
	Social  *uint256.Int
	Expense *uint256.Int
}

// BuyResult is the structured record of a settled buy.
type BuyResult struct {
	Buyer           string
	Affiliate       string
	Presale         bool
	Dexfer          bool
	GrossIn         *uint256.Int
	ProtocolFee     *uint256.Int
	Tax             TaxSplit
	AffiliateReward *uint256.Int
	Deposit         *uint256.Int
	DexTransfer     *uint256.Int
	Staked          *uint256.Int
	PresaleFund     *uint256.Int
	Minted          *uint256.Int
}

// SellResult is the structured record of a settled sell.
type SellResult struct {
	Seller      string
	Spender     string
	Dexfer      bool
	Burned      *uint256.Int
	Released    *uint256.Int
	Tax         TaxSplit
	NetReleased *uint256.Int
}

// Response carries every instruction produced by a successful call.
type Response struct {
	Action     string
	Transfers  []Transfer
	Mint       *MintInstruction
	Attributes []Attribute
	Buy        *BuyResult
	Sell       *SellResult
}

func (r *Response) addAttribute(key, value string) {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
}

// Attribute returns the value recorded under key.
func (r *Response) Attribute(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// CurveInfo answers the curve query.
type CurveInfo struct {
	Reserve      *uint256.Int
	Supply       *uint256.Int
	SpotPrice    *uint256.Int
	ReserveDenom string
	TaxCollected *uint256.Int
}
