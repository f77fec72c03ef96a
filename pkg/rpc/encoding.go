package rpc

import (
	"encoding/base64"

	"github.com/klauspost/compress/zstd"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/accounts"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/programs/bulldozer"
)

// bulldozerProgramName labels jsonParsed account data.
const bulldozerProgramName = "bulldozer"

// EncodeAccountData encodes account data according to the specified encoding.
func EncodeAccountData(data []byte, encoding Encoding) (interface{}, error) {
	switch encoding {
	case EncodingBase58:
		return []string{base58.Encode(data), string(EncodingBase58)}, nil

	case EncodingBase64Zstd:
		compressed, err := compressZstd(data)
		if err != nil {
			return nil, errors.Wrap(err, "zstd compression failed")
		}
		return []string{base64.StdEncoding.EncodeToString(compressed), string(EncodingBase64Zstd)}, nil

	default:
		return []string{base64.StdEncoding.EncodeToString(data), string(EncodingBase64)}, nil
	}
}

// DecodeAccountData decodes account data from the specified encoding.
func DecodeAccountData(encoded string, encoding Encoding) ([]byte, error) {
	switch encoding {
	case EncodingBase58:
		return base58.Decode(encoded)

	case EncodingBase64Zstd:
		compressed, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errors.Wrap(err, "base64 decode failed")
		}
		return decompressZstd(compressed)

	default:
		return base64.StdEncoding.DecodeString(encoded)
	}
}

// encodeAccount renders an account for the wire. jsonParsed decodes schema
// records and falls back to base64 for everything else.
func encodeAccount(account *accounts.Account, encoding Encoding, slice *DataSlice) (*AccountInfo, error) {
	info := &AccountInfo{
		Executable: account.Executable,
		Lamports:   account.Lamports,
		Owner:      account.Owner.String(),
		RentEpoch:  account.RentEpoch,
		Space:      uint64(len(account.Data)),
	}

	if encoding == EncodingJSONParsed && slice == nil && account.Owner == types.BulldozerProgramAddr {
		if rec, err := bulldozer.DecodeRecord(account.Data); err == nil {
			info.Data = ParsedAccountData{
				Program: bulldozerProgramName,
				Parsed:  ParsedValue{Type: rec.Type().String(), Info: rec},
				Space:   info.Space,
			}
			return info, nil
		}
	}

	data, err := EncodeAccountData(ApplyDataSlice(account.Data, slice), encoding)
	if err != nil {
		return nil, err
	}
	info.Data = data
	return info, nil
}

// decodeTransaction decodes a wire transaction sent by a client. Solana
// clients default to base58.
func decodeTransaction(encoded string, encoding Encoding) ([]byte, error) {
	switch encoding {
	case "", EncodingBase58:
		return base58.Decode(encoded)
	case EncodingBase64:
		return base64.StdEncoding.DecodeString(encoded)
	default:
		return nil, errors.Errorf("unsupported transaction encoding %q", encoding)
	}
}

// EncodeTransaction encodes a wire transaction for getTransaction.
func EncodeTransaction(data []byte, encoding Encoding) []string {
	if encoding == EncodingBase58 {
		return []string{base58.Encode(data), string(EncodingBase58)}
	}
	return []string{base64.StdEncoding.EncodeToString(data), string(EncodingBase64)}
}

// compressZstd compresses data using zstd.
func compressZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

// decompressZstd decompresses zstd-compressed data.
func decompressZstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}

// ApplyDataSlice applies a data slice to account data.
func ApplyDataSlice(data []byte, slice *DataSlice) []byte {
	if slice == nil {
		return data
	}

	start := slice.Offset
	if start >= uint64(len(data)) {
		return []byte{}
	}

	end := start + slice.Length
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}

	return data[start:end]
}

// matchesFilters reports whether data passes every getProgramAccounts filter.
func matchesFilters(data []byte, filters []ProgramAccountFilter) (bool, error) {
	for _, f := range filters {
		if f.DataSize != nil && uint64(len(data)) != *f.DataSize {
			return false, nil
		}
		if f.Memcmp == nil {
			continue
		}
		encoding := f.Memcmp.Encoding
		if encoding == "" {
			encoding = EncodingBase58
		}
		want, err := DecodeAccountData(f.Memcmp.Bytes, encoding)
		if err != nil {
			return false, errors.Wrap(err, "invalid memcmp bytes")
		}
		m := bulldozer.Memcmp{Offset: int(f.Memcmp.Offset), Bytes: want}
		if !m.Matches(data) {
			return false, nil
		}
	}
	return true, nil
}
