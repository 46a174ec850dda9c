package verifier

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FormatArg converts decoded abi value into a JSON friendly value:
// integers become decimal strings and byte sequences become 0x-prefixed hex
func FormatArg(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case *big.Int:
		return val.String()
	case common.Address:
		return val.Hex()
	case common.Hash:
		return val.Hex()
	case []byte:
		return hexutil.Encode(val)
	case string, bool:
		return val
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprint(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprint(rv.Uint())
	case reflect.Array:
		// bytesN
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return hexutil.Encode(b)
		}
		return formatList(rv)
	case reflect.Slice:
		return formatList(rv)
	case reflect.Struct:
		// tuple, fields are F0, F1...
		res := make([]interface{}, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			res[i] = FormatArg(rv.Field(i).Interface())
		}
		return res
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return FormatArg(rv.Elem().Interface())
	}

	return fmt.Sprint(v)
}

func FormatArgs(args []interface{}) []interface{} {
	res := make([]interface{}, len(args))
	for i, a := range args {
		res[i] = FormatArg(a)
	}
	return res
}

func formatList(rv reflect.Value) []interface{} {
	res := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		res[i] = FormatArg(rv.Index(i).Interface())
	}
	return res
}
