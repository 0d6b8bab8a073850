package config

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"bondcurve/native/bonding"
	"bondcurve/native/bonding/curves"
)

// ContractConfig describes the curve instance the daemon instantiates on
// first start.
type ContractConfig struct {
	ContractAddress string      `toml:"ContractAddress"`
	Owner           string      `toml:"Owner"`
	Name            string      `toml:"Name"`
	Symbol          string      `toml:"Symbol"`
	Decimals        uint8       `toml:"Decimals"`
	ReserveDenom    string      `toml:"ReserveDenom"`
	ReserveDecimals uint8       `toml:"ReserveDecimals"`
	Curve           CurveConfig `toml:"curve"`
}

func (c *ContractConfig) applyDefaults() {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = "Bonded Token"
	}
	if strings.TrimSpace(c.Symbol) == "" {
		c.Symbol = "BOND"
	}
	if strings.TrimSpace(c.ReserveDenom) == "" {
		c.ReserveDenom = "uusd"
	}
	if strings.TrimSpace(c.Curve.Type) == "" {
		c.Curve.Type = curves.KindLinear.String()
		if c.Curve.Slope == 0 {
			c.Curve.Slope = 1
		}
	}
}

// InstantiateMsg builds the instantiation message for the configured curve.
func (c ContractConfig) InstantiateMsg() (bonding.InstantiateMsg, error) {
	curve, err := c.Curve.CurveType()
	if err != nil {
		return bonding.InstantiateMsg{}, err
	}
	return bonding.InstantiateMsg{
		Name:            c.Name,
		Symbol:          c.Symbol,
		Decimals:        c.Decimals,
		ReserveDenom:    c.ReserveDenom,
		ReserveDecimals: c.ReserveDecimals,
		CurveType:       curve,
	}, nil
}

// CurveConfig selects the price curve. Slope is read as Slope*10^-Scale and
// doubles as the price for the constant curve.
type CurveConfig struct {
	Type  string `toml:"Type"`
	Slope uint64 `toml:"Slope"`
	Scale uint32 `toml:"Scale"`
}

// CurveType resolves the configured curve.
func (c CurveConfig) CurveType() (curves.CurveType, error) {
	kind, err := curves.ParseKind(c.Type)
	if err != nil {
		return curves.CurveType{}, err
	}
	ct := curves.CurveType{Kind: kind}
	if kind != curves.KindSigmoid {
		ct.Slope = uint256.NewInt(c.Slope)
		ct.Scale = c.Scale
	}
	if err := ct.Validate(); err != nil {
		return curves.CurveType{}, err
	}
	return ct, nil
}

// RateLimitConfig throttles the query API per client.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

func (r *RateLimitConfig) applyDefaults() {
	if r.RequestsPerSecond <= 0 {
		r.RequestsPerSecond = 20
	}
	if r.Burst <= 0 {
		r.Burst = 40
	}
}

// TelemetryConfig controls the OTLP exporters and the /metrics endpoint.
type TelemetryConfig struct {
	Endpoint       string  `toml:"Endpoint"`
	Insecure       bool    `toml:"Insecure"`
	SampleRatio    float64 `toml:"SampleRatio"`
	MetricsEnabled bool    `toml:"MetricsEnabled"`
	TracesEnabled  bool    `toml:"TracesEnabled"`
}

func (t *TelemetryConfig) applyDefaults() {
	if t.SampleRatio <= 0 {
		t.SampleRatio = 1
	}
}

func (t TelemetryConfig) String() string {
	return fmt.Sprintf("endpoint=%q insecure=%t sample=%.2f metrics=%t traces=%t",
		t.Endpoint, t.Insecure, t.SampleRatio, t.MetricsEnabled, t.TracesEnabled)
}
