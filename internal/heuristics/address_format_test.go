package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAddress(t *testing.T) {
	cases := map[string]AddressFormat{
		"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2":                             FormatP2PKH,
		"3P14159f73E4gFr7JterCCQh9QjiTjiZrG":                             FormatP2SH,
		"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq":                     FormatP2WPKH,
		"bc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3": FormatP2WSH,
		"bc1p5d7rjq7g6rdk2yhzks9smlaqtedr4dekq08ge8ztwac72sfr9rusxg3297": FormatP2TR,
		"0x52908400098527886E0F7030069857D2E4169EE7":                     FormatInvalid,
		"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN0":                             FormatInvalid,
	}
	for addr, want := range cases {
		assert.Equal(t, want, ClassifyAddress(addr), addr)
	}
	assert.Equal(t, FormatInvalid, ClassifyAddress(""))
}

func TestIsValidAddress_LooseChecksum(t *testing.T) {
	// Last character altered: shape still valid, checksum broken.
	typo := "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN3"
	assert.True(t, IsValidAddress(typo))
	assert.False(t, ChecksumValid(typo))
	assert.True(t, ChecksumValid("1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"))
}
