package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part of a bech32 account address.
type AddressPrefix string

// DefaultPrefix is used for generated addresses when no prefix is configured.
const DefaultPrefix AddressPrefix = "terra"

var ErrInvalidAddress = errors.New("crypto: invalid address")

// Address is a bech32 account address. Accounts carry 20 bytes and contract
// addresses 32.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != 20 && len(b) != 32 {
		return Address{}, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(b))
	}
	if strings.TrimSpace(string(prefix)) == "" {
		return Address{}, fmt.Errorf("%w: empty prefix", ErrInvalidAddress)
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), b...)}, nil
}

// MustNewAddress panics on invalid input. Intended for tests and constants.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("%w: invalid bech32 string: %v", ErrInvalidAddress, err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: error converting bits: %v", ErrInvalidAddress, err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// ValidateAddress reports whether addrStr is a canonical bech32 address.
// Mixed-case and re-encoding mismatches are rejected.
func ValidateAddress(addrStr string) error {
	addr, err := DecodeAddress(addrStr)
	if err != nil {
		return err
	}
	if addr.String() != addrStr {
		return fmt.Errorf("%w: %q is not canonical", ErrInvalidAddress, addrStr)
	}
	return nil
}

// GenerateAddress derives a fresh account address from a new secp256k1 key.
func GenerateAddress(prefix AddressPrefix) (Address, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return Address{}, err
	}
	return NewAddress(prefix, crypto.PubkeyToAddress(key.PublicKey).Bytes())
}

// ContractAddress derives a deterministic 32-byte contract address from a
// label, e.g. the instance name.
func ContractAddress(prefix AddressPrefix, label string) (Address, error) {
	return NewAddress(prefix, crypto.Keccak256([]byte("contract/"+label)))
}
