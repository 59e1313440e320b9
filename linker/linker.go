// Package linker substitutes deployed library addresses into unlinked
// contract bytecode.
package linker

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// PlaceholderWidth is the width in hex characters of a solc link
// placeholder, equal to the hex width of a 20-byte address.
const PlaceholderWidth = 2 * common.AddressLength

// ErrUnresolvedLink marks bytecode that still contains a placeholder.
var ErrUnresolvedLink = errors.New("linker: unresolved library placeholder")

// LinkError reports a placeholder left in bytecode after linking.
type LinkError struct {
	Step        string
	Placeholder string
}

func (e *LinkError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("unresolved library placeholder %s", e.Placeholder)
	}
	return fmt.Sprintf("step %s: unresolved library placeholder %s", e.Step, e.Placeholder)
}

func (e *LinkError) Is(target error) bool {
	return target == ErrUnresolvedLink
}

// Ref pairs a placeholder with the library address that replaces it.
type Ref struct {
	Library     string
	Placeholder string
	Address     common.Address
}

var placeholderRe = regexp.MustCompile(`__\$[0-9A-Za-z]+\$__|__[A-Za-z0-9.:/\-]+_+`)

// Placeholder returns the solc (>=0.5) placeholder for a fully qualified
// library name such as "src/Pairing.sol:Pairing".
func Placeholder(fqName string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(fqName))
	digest := hex.EncodeToString(h.Sum(nil))
	return "__$" + digest[:PlaceholderWidth-6] + "$__"
}

// LegacyPlaceholder returns the pre-0.5 placeholder: the library name
// framed by underscores and padded to the placeholder width.
func LegacyPlaceholder(name string) string {
	body := "__" + name
	if len(body) > PlaceholderWidth-2 {
		body = body[:PlaceholderWidth-2]
	}
	return body + strings.Repeat("_", PlaceholderWidth-len(body))
}

// Link replaces every occurrence of placeholder in bytecode with the hex
// digits of addr rendered to the placeholder's width. Applying it again
// with the same inputs is a no-op.
func Link(bytecode, placeholder string, addr common.Address) (string, error) {
	if placeholder == "" {
		return "", fmt.Errorf("empty placeholder")
	}
	return strings.ReplaceAll(bytecode, placeholder, render(addr, len(placeholder))), nil
}

// render writes the address without its 0x marker. Wider placeholders are
// left padded with zeros; narrower ones keep the low-order digits.
func render(addr common.Address, width int) string {
	digits := hex.EncodeToString(addr.Bytes())
	switch {
	case width > len(digits):
		return strings.Repeat("0", width-len(digits)) + digits
	case width < len(digits):
		return digits[len(digits)-width:]
	default:
		return digits
	}
}

// Unresolved lists the distinct placeholders remaining in bytecode.
func Unresolved(bytecode string) []string {
	code := strip0x(bytecode)
	var out []string
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllString(code, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	// Anything else that is not hex is reported from its first offending
	// character.
	if len(out) == 0 {
		if i := strings.IndexFunc(code, notHex); i >= 0 {
			end := min(i+PlaceholderWidth, len(code))
			out = append(out, code[i:end])
		}
	}
	return out
}

// Finalize decodes fully linked bytecode. Any remaining placeholder is
// reported as a LinkError.
func Finalize(bytecode string) ([]byte, error) {
	if left := Unresolved(bytecode); len(left) > 0 {
		return nil, &LinkError{Placeholder: left[0]}
	}
	code, err := hex.DecodeString(strip0x(bytecode))
	if err != nil {
		return nil, fmt.Errorf("failed to decode bytecode: %w", err)
	}
	return code, nil
}

// LinkAll applies refs in order and finalizes the result.
func LinkAll(bytecode string, refs []Ref) ([]byte, error) {
	linked := bytecode
	for _, ref := range refs {
		var err error
		linked, err = Link(linked, ref.Placeholder, ref.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to link %s: %w", ref.Library, err)
		}
	}
	return Finalize(linked)
}

func strip0x(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

func notHex(r rune) bool {
	return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F')
}
