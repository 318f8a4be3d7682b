package heuristics

import (
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// Address Format Classification
//
// Two layers:
//   1. Regex validation decides valid vs invalid. It is deliberately loose
//      (no checksum) so that addresses copied from explorers with a typo in
//      the checksum still get scored instead of rejected.
//   2. btcutil decoding refines the script type when the checksum holds.
//      Prefix rules cover the rest:
//        1...    → P2PKH  (legacy, BIP44)
//        3...    → P2SH   (wrapped SegWit / multisig, BIP49)
//        bc1q... → P2WPKH (42 chars) or P2WSH (62 chars)
//        bc1p... → P2TR   (Taproot, BIP341)

var (
	legacyAddressPattern = regexp.MustCompile(`^(1|3)[A-HJ-NP-Za-km-z1-9]{25,34}$`)
	bech32AddressPattern = regexp.MustCompile(`^bc1[0-9a-z]{39,59}$`)
)

// AddressFormat is the script type an address encodes.
type AddressFormat string

const (
	FormatP2PKH   AddressFormat = "p2pkh"
	FormatP2SH    AddressFormat = "p2sh"
	FormatP2WPKH  AddressFormat = "p2wpkh"
	FormatP2WSH   AddressFormat = "p2wsh"
	FormatP2TR    AddressFormat = "p2tr"
	FormatBech32  AddressFormat = "bech32" // valid bech32 shape, unknown witness program
	FormatInvalid AddressFormat = "invalid"
)

// IsLegacyAddress reports whether addr matches the P2PKH/P2SH pattern.
func IsLegacyAddress(addr string) bool {
	return legacyAddressPattern.MatchString(addr)
}

// IsBech32Address reports whether addr matches the mainnet bech32 pattern.
func IsBech32Address(addr string) bool {
	return bech32AddressPattern.MatchString(addr)
}

// IsValidAddress reports whether addr passes either format check.
func IsValidAddress(addr string) bool {
	return IsLegacyAddress(addr) || IsBech32Address(addr)
}

// ClassifyAddress returns the script type of a valid address, or
// FormatInvalid.
func ClassifyAddress(addr string) AddressFormat {
	if !IsValidAddress(addr) {
		return FormatInvalid
	}

	if decoded, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams); err == nil {
		switch decoded.(type) {
		case *btcutil.AddressPubKeyHash:
			return FormatP2PKH
		case *btcutil.AddressScriptHash:
			return FormatP2SH
		case *btcutil.AddressWitnessPubKeyHash:
			return FormatP2WPKH
		case *btcutil.AddressWitnessScriptHash:
			return FormatP2WSH
		case *btcutil.AddressTaproot:
			return FormatP2TR
		}
	}

	return classifyByPrefix(addr)
}

// ChecksumValid reports whether addr decodes as a mainnet address.
func ChecksumValid(addr string) bool {
	_, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams)
	return err == nil && IsValidAddress(addr)
}

func classifyByPrefix(addr string) AddressFormat {
	switch {
	case strings.HasPrefix(addr, "1"):
		return FormatP2PKH
	case strings.HasPrefix(addr, "3"):
		return FormatP2SH
	case strings.HasPrefix(addr, "bc1p"):
		return FormatP2TR
	case strings.HasPrefix(addr, "bc1q") && len(addr) == 42:
		return FormatP2WPKH
	case strings.HasPrefix(addr, "bc1q") && len(addr) == 62:
		return FormatP2WSH
	default:
		return FormatBech32
	}
}
