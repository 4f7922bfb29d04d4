package cache

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Codec serializes values for the distributed tier.
type Codec interface {
	// Encode encodes the value to self-describing bytes.
	Encode(v any) ([]byte, error)

	// Decode decodes bytes produced by Encode.
	Decode(data []byte) (any, error)
}

// Value kind tags. The first byte of every encoded value names its kind so
// heterogeneous values round-trip without a schema registry.
const (
	kindString = 's'
	kindInt    = 'i'
	kindUint   = 'u'
	kindFloat  = 'f'
	kindBool   = 'b'
	kindJSON   = 'j'
)

// selfDescribingCodec encodes scalars as tagged text and everything else as
// tagged JSON.
type selfDescribingCodec struct{}

// NewCodec returns the default value codec.
func NewCodec() Codec {
	return selfDescribingCodec{}
}

// Encode encodes the value as a one-byte kind tag, ':', and the payload.
func (selfDescribingCodec) Encode(v any) ([]byte, error) {
	switch t := v.(type) {
	case string:
		return tagged(kindString, t), nil
	case int:
		return tagged(kindInt, strconv.FormatInt(int64(t), 10)), nil
	case int8:
		return tagged(kindInt, strconv.FormatInt(int64(t), 10)), nil
	case int16:
		return tagged(kindInt, strconv.FormatInt(int64(t), 10)), nil
	case int32:
		return tagged(kindInt, strconv.FormatInt(int64(t), 10)), nil
	case int64:
		return tagged(kindInt, strconv.FormatInt(t, 10)), nil
	case uint:
		return tagged(kindUint, strconv.FormatUint(uint64(t), 10)), nil
	case uint32:
		return tagged(kindUint, strconv.FormatUint(uint64(t), 10)), nil
	case uint64:
		return tagged(kindUint, strconv.FormatUint(t, 10)), nil
	case float32:
		return tagged(kindFloat, strconv.FormatFloat(float64(t), 'g', -1, 64)), nil
	case float64:
		return tagged(kindFloat, strconv.FormatFloat(t, 'g', -1, 64)), nil
	case bool:
		return tagged(kindBool, strconv.FormatBool(t)), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
		}
		return tagged(kindJSON, string(data)), nil
	}
}

// Decode decodes bytes produced by Encode. Integers decode as int64, uints
// as uint64 and JSON payloads as decoded interface values.
func (selfDescribingCodec) Decode(data []byte) (any, error) {
	if len(data) < 2 || data[1] != ':' {
		return nil, fmt.Errorf("%w: missing kind tag", ErrDecodingFailed)
	}

	payload := string(data[2:])

	switch data[0] {
	case kindString:
		return payload, nil
	case kindInt:
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecodingFailed, err)
		}
		return n, nil
	case kindUint:
		n, err := strconv.ParseUint(payload, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecodingFailed, err)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecodingFailed, err)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecodingFailed, err)
		}
		return b, nil
	case kindJSON:
		var v any
		if err := json.Unmarshal(data[2:], &v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecodingFailed, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind tag %q", ErrDecodingFailed, data[0])
	}
}

func tagged(kind byte, payload string) []byte {
	out := make([]byte, 0, len(payload)+2)
	out = append(out, kind, ':')
	return append(out, payload...)
}
