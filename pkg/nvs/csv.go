package nvs

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSV rows follow the upstream Espressif NVS partition generator grammar:
//
//	key,type,encoding,value
//
// A "namespace" type row opens a new namespace; every row after it until
// the next namespace row belongs to that namespace. encoding is one of
// u8/i8/u16/i16/u32/i32/u64/i64/string; rows with any other encoding
// (including the generator's hex2bin/base64/binary) are rejected with an error.
// [spec.md §8 S6 "same as the upstream Espressif NVS partition generator"]
func LoadCSV(r io.Reader) (*Builder, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("nvs: reading CSV: %w", err)
	}

	b := NewBuilder()
	namespace := ""
	for i, row := range records {
		if i == 0 || len(row) == 0 {
			continue // header row or blank line
		}
		if len(row) < 4 {
			return nil, fmt.Errorf("nvs: CSV row %d: need 4 fields, got %d", i+1, len(row))
		}
		key, typ, encoding, value := row[0], row[1], row[2], row[3]

		if typ == "namespace" {
			namespace = key
			continue
		}
		if namespace == "" {
			return nil, fmt.Errorf("nvs: CSV row %d: key %q precedes any namespace row", i+1, key)
		}

		v, err := decodeCSVValue(encoding, value)
		if err != nil {
			return nil, fmt.Errorf("nvs: CSV row %d (%s): %w", i+1, key, err)
		}
		if err := b.WriteEntry(namespace, key, v); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func decodeCSVValue(encoding, value string) (Value, error) {
	switch encoding {
	case "u8", "u16", "u32", "u64":
		n, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return Value{}, err
		}
		return UintWidth(n, numericWidth(encoding)), nil
	case "i8", "i16", "i32", "i64":
		n, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			return Value{}, err
		}
		return IntWidth(n, numericWidth(encoding)), nil
	case "string":
		return String(value), nil
	default:
		return Value{}, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// numericWidth maps a CSV encoding column to its declared storage width, so
// WriteEntry honors the width the CSV declares rather than re-deriving it
// from the value's magnitude (upstream nvs_partition_gen.py always honors
// the declared column type). [spec.md §8 S6]
func numericWidth(encoding string) int {
	switch encoding {
	case "u8", "i8":
		return 1
	case "u16", "i16":
		return 2
	case "u32", "i32":
		return 4
	default:
		return 8
	}
}
