package bonding

import (
	"fmt"
	"math/big"

	"bondcurve/native/bonding/curves"
	"bondcurve/native/common"
)

var (
	curveStateKey   = []byte("bonding/curve_state")
	curveTypeKey    = []byte("bonding/curve_type")
	paramConfigKey  = []byte("bonding/param_config")
	acctConfigKey   = []byte("bonding/acct_config")
	dexferConfigKey = []byte("bonding/dexfer_config")
	safetyConfigKey = []byte("bonding/safety_config")
)

// State is the key/value surface the engine persists through.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

type storedCurveState struct {
	Reserve         *big.Int
	Supply          *big.Int
	ReserveDenom    string
	SupplyDecimals  uint32
	ReserveDecimals uint32
	TaxCollected    *big.Int
}

type storedCurveType struct {
	Kind  uint8
	Slope *big.Int
	Scale uint32
}

// Store provides typed accessors for the engine's singleton records.
type Store struct {
	state State
}

func NewStore(state State) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (State, error) {
	if s == nil || s.state == nil {
		return nil, errNilState
	}
	return s.state, nil
}

func (s *Store) load(key []byte, out interface{}) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	ok, err := state.KVGet(key, out)
	if err != nil {
		return fmt.Errorf("bonding engine: load %s: %w", key, err)
	}
	if !ok {
		return ErrNotInstantiated
	}
	return nil
}

func (s *Store) save(key []byte, value interface{}) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := state.KVPut(key, value); err != nil {
		return fmt.Errorf("bonding engine: save %s: %w", key, err)
	}
	return nil
}

// Instantiated reports whether the curve state record exists.
func (s *Store) Instantiated() (bool, error) {
	state, err := s.withState()
	if err != nil {
		return false, err
	}
	return state.KVGet(curveStateKey, nil)
}

// CurveState loads the settlement record.
func (s *Store) CurveState() (*CurveState, error) {
	var stored storedCurveState
	if err := s.load(curveStateKey, &stored); err != nil {
		return nil, err
	}
	reserve, err := common.FromBig(stored.Reserve)
	if err != nil {
		return nil, err
	}
	supply, err := common.FromBig(stored.Supply)
	if err != nil {
		return nil, err
	}
	tax, err := common.FromBig(stored.TaxCollected)
	if err != nil {
		return nil, err
	}
	return &CurveState{
		Reserve:      reserve,
		Supply:       supply,
		ReserveDenom: stored.ReserveDenom,
		Decimals:     curves.DecimalPlaces{Supply: stored.SupplyDecimals, Reserve: stored.ReserveDecimals},
		TaxCollected: tax,
	}, nil
}

// SaveCurveState persists the settlement record.
func (s *Store) SaveCurveState(cs *CurveState) error {
	if cs == nil {
		return fmt.Errorf("bonding engine: nil curve state")
	}
	return s.save(curveStateKey, &storedCurveState{
		Reserve:         common.Copy(cs.Reserve).ToBig(),
		Supply:          common.Copy(cs.Supply).ToBig(),
		ReserveDenom:    cs.ReserveDenom,
		SupplyDecimals:  cs.Decimals.Supply,
		ReserveDecimals: cs.Decimals.Reserve,
		TaxCollected:    common.Copy(cs.TaxCollected).ToBig(),
	})
}

// CurveType loads the configured curve.
func (s *Store) CurveType() (curves.CurveType, error) {
	var stored storedCurveType
	if err := s.load(curveTypeKey, &stored); err != nil {
		return curves.CurveType{}, err
	}
	slope, err := common.FromBig(stored.Slope)
	if err != nil {
		return curves.CurveType{}, err
	}
	return curves.CurveType{Kind: curves.Kind(stored.Kind), Slope: slope, Scale: stored.Scale}, nil
}

func (s *Store) SaveCurveType(ct curves.CurveType) error {
	return s.save(curveTypeKey, &storedCurveType{
		Kind:  uint8(ct.Kind),
		Slope: common.Copy(ct.Slope).ToBig(),
		Scale: ct.Scale,
	})
}

func (s *Store) ParamConfig() (ParamConfig, error) {
	var cfg ParamConfig
	err := s.load(paramConfigKey, &cfg)
	return cfg, err
}

func (s *Store) SaveParamConfig(cfg ParamConfig) error {
	return s.save(paramConfigKey, &cfg)
}

func (s *Store) AcctConfig() (AcctConfig, error) {
	var cfg AcctConfig
	err := s.load(acctConfigKey, &cfg)
	return cfg, err
}

func (s *Store) SaveAcctConfig(cfg AcctConfig) error {
	return s.save(acctConfigKey, &cfg)
}

func (s *Store) DexferConfig() (DexferConfig, error) {
	var cfg DexferConfig
	err := s.load(dexferConfigKey, &cfg)
	return cfg, err
}

func (s *Store) SaveDexferConfig(cfg DexferConfig) error {
	return s.save(dexferConfigKey, &cfg)
}

func (s *Store) SafetyConfig() (SafetyConfig, error) {
	var cfg SafetyConfig
	err := s.load(safetyConfigKey, &cfg)
	return cfg, err
}

func (s *Store) SaveSafetyConfig(cfg SafetyConfig) error {
	return s.save(safetyConfigKey, &cfg)
}
