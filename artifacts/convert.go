package artifacts

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

func convertArguments(args []string, inputs abi.Arguments) ([]interface{}, error) {
	converted := make([]interface{}, len(args))
	for i, arg := range args {
		convertedArg, err := convertArgument(strings.TrimSpace(arg), inputs[i].Type)
		if err != nil {
			return nil, fmt.Errorf("failed to convert argument %d (%s): %w", i, inputs[i].Name, err)
		}
		converted[i] = convertedArg
	}
	return converted, nil
}

// convertArgument turns a string into the Go value go-ethereum's abi
// package expects for typ.
func convertArgument(arg string, typ abi.Type) (interface{}, error) {
	switch typ.T {
	case abi.AddressTy:
		if !common.IsHexAddress(arg) {
			return nil, fmt.Errorf("invalid address: %q", arg)
		}
		return common.HexToAddress(arg), nil
	case abi.BoolTy:
		v, err := strconv.ParseBool(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid bool: %q", arg)
		}
		return v, nil
	case abi.StringTy:
		return arg, nil
	case abi.BytesTy:
		b, err := hexutil.Decode(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes %q: %w", arg, err)
		}
		return b, nil
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes%d %q: %w", typ.Size, arg, err)
		}
		if len(b) > typ.Size {
			return nil, fmt.Errorf("value %q too long for bytes%d", arg, typ.Size)
		}
		v := reflect.New(typ.GetType()).Elem()
		reflect.Copy(v, reflect.ValueOf(b))
		return v.Interface(), nil
	case abi.UintTy:
		return convertInt(arg, typ, false)
	case abi.IntTy:
		return convertInt(arg, typ, true)
	default:
		return nil, fmt.Errorf("unsupported type: %s", typ.String())
	}
}

// convertInt yields the native integer type for 8, 16, 32 and 64 bit
// widths and *big.Int for every other width.
func convertInt(arg string, typ abi.Type, signed bool) (interface{}, error) {
	n, ok := new(big.Int).SetString(arg, 0)
	if !ok {
		return nil, fmt.Errorf("invalid %s value: %q", typ.String(), arg)
	}
	if !signed && n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s for %s", arg, typ.String())
	}
	bits := n.BitLen()
	if signed {
		// two's complement needs one extra bit for the sign
		limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("value %s overflows %s", arg, typ.String())
		}
	} else if bits > typ.Size {
		return nil, fmt.Errorf("value %s overflows %s", arg, typ.String())
	}

	goType := typ.GetType()
	if goType == reflect.TypeOf((*big.Int)(nil)) {
		return n, nil
	}
	if signed {
		return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
	}
	return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
}
