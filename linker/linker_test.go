package linker

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pairingAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func TestPlaceholderShape(t *testing.T) {
	p := Placeholder("src/Pairing.sol:Pairing")
	assert.Len(t, p, PlaceholderWidth)
	assert.True(t, strings.HasPrefix(p, "__$"))
	assert.True(t, strings.HasSuffix(p, "$__"))
	assert.Equal(t, p, Placeholder("src/Pairing.sol:Pairing"))
	assert.NotEqual(t, p, Placeholder("src/Other.sol:Pairing"))

	legacy := LegacyPlaceholder("Pairing")
	assert.Len(t, legacy, PlaceholderWidth)
	assert.True(t, strings.HasPrefix(legacy, "__Pairing_"))
}

func TestLinkReplacesEveryOccurrence(t *testing.T) {
	p := Placeholder("src/Pairing.sol:Pairing")
	code := "6080" + p + "60aa" + p + "00"

	linked, err := Link(code, p, pairingAddr)
	require.NoError(t, err)

	want := "6080" + "5fbdb2315678afecb367f032d93f642f64180aa3" + "60aa" + "5fbdb2315678afecb367f032d93f642f64180aa3" + "00"
	assert.Equal(t, want, linked)
	assert.Empty(t, Unresolved(linked))
}

func TestLinkIsIdempotent(t *testing.T) {
	p := LegacyPlaceholder("Pairing")
	code := "60" + p + "00"

	once, err := Link(code, p, pairingAddr)
	require.NoError(t, err)
	twice, err := Link(once, p, pairingAddr)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestLinkNarrowPlaceholderKeepsLowOrderDigits(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	code := "0x6000__$deadbeef$__6000"

	linked, err := Link(code, "__$deadbeef$__", addr)
	require.NoError(t, err)
	assert.Equal(t, "0x6000"+"000000deadbeef"+"6000", linked)

	out, err := Finalize(linked)
	require.NoError(t, err)
	assert.Equal(t, byte(0x60), out[0])
}

func TestLinkRejectsEmptyPlaceholder(t *testing.T) {
	_, err := Link("6000", "", pairingAddr)
	assert.Error(t, err)
}

func TestFinalizeReportsRemainingPlaceholder(t *testing.T) {
	p := Placeholder("src/Pairing.sol:Pairing")
	_, err := Finalize("0x6080" + p + "00")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedLink)

	var linkErr *LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Equal(t, p, linkErr.Placeholder)
}

func TestFinalizeRejectsStrayNonHex(t *testing.T) {
	_, err := Finalize("6080zz00")
	assert.ErrorIs(t, err, ErrUnresolvedLink)
}

func TestFinalizeDecodesLinkedCode(t *testing.T) {
	out, err := Finalize("0x60806040")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40}, out)
}

func TestLinkAll(t *testing.T) {
	a := Placeholder("src/A.sol:A")
	b := Placeholder("src/B.sol:B")
	code := a + b

	_, err := LinkAll(code, []Ref{{Library: "A", Placeholder: a, Address: pairingAddr}})
	assert.ErrorIs(t, err, ErrUnresolvedLink)

	out, err := LinkAll(code, []Ref{
		{Library: "A", Placeholder: a, Address: pairingAddr},
		{Library: "B", Placeholder: b, Address: common.HexToAddress("0x01")},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2*common.AddressLength)
	assert.Equal(t, byte(0x01), out[len(out)-1])
}
