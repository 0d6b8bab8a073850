package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, 20)
	raw[0] = 0x42
	raw[19] = 0x24
	addr := MustNewAddress(DefaultPrefix, raw)

	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Prefix() != DefaultPrefix {
		t.Fatalf("unexpected prefix %q", decoded.Prefix())
	}
	if string(decoded.Bytes()) != string(raw) {
		t.Fatalf("bytes changed across round trip")
	}
	if err := ValidateAddress(addr.String()); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateAddressRejectsPlaceholders(t *testing.T) {
	for _, candidate := range []string{"none", "", "contract", "1"} {
		if err := ValidateAddress(candidate); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("expected %q to be rejected, got %v", candidate, err)
		}
	}
}

func TestValidateAddressRejectsUppercase(t *testing.T) {
	addr := MustNewAddress(DefaultPrefix, make([]byte, 20)).String()
	if err := ValidateAddress(strings.ToUpper(addr)); err == nil {
		t.Fatalf("expected upper-case address to be rejected")
	}
}

func TestContractAddressIsDeterministic(t *testing.T) {
	first, err := ContractAddress(DefaultPrefix, "bonding")
	if err != nil {
		t.Fatalf("contract address: %v", err)
	}
	second, err := ContractAddress(DefaultPrefix, "bonding")
	if err != nil {
		t.Fatalf("contract address: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("contract address not deterministic")
	}
	if len(first.Bytes()) != 32 {
		t.Fatalf("expected 32-byte contract address, got %d", len(first.Bytes()))
	}
	generated, err := GenerateAddress(DefaultPrefix)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := ValidateAddress(generated.String()); err != nil {
		t.Fatalf("generated address invalid: %v", err)
	}
}
