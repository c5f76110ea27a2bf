package parttable

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSV rows follow the upstream Espressif partition-table generator grammar:
//
//	name,type,subtype,offset,size,flags
//
// type and subtype accept either the symbolic names gen_esp32part.py
// recognizes (app/data, factory/ota_0../ota_15/test, ota/phy/nvs/nvs_keys/
// spiffs) or a raw numeric byte. offset may be blank, meaning auto-assign.
// size accepts a trailing K or M suffix (e.g. "4K", "2M"). [spec.md §8 S5
// "mirrors the upstream gen_esp32part.py CSV grammar", per original_source]
func LoadCSV(r io.Reader) ([]Def, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parttable: reading CSV: %w", err)
	}

	var defs []Def
	for i, row := range records {
		if len(row) == 0 {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(row[0]), "#") {
			continue // comment line
		}
		if strings.EqualFold(strings.TrimSpace(row[0]), "name") {
			continue // header row
		}
		if len(row) < 5 {
			return nil, fmt.Errorf("parttable: CSV row %d: need at least 5 fields, got %d", i+1, len(row))
		}

		name := strings.TrimSpace(row[0])
		typ, err := parseType(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("parttable: CSV row %d (%s): %w", i+1, name, err)
		}
		subtype, err := parseSubtype(typ, strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("parttable: CSV row %d (%s): %w", i+1, name, err)
		}
		offset, err := parseOffset(strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("parttable: CSV row %d (%s): invalid offset: %w", i+1, name, err)
		}
		size, err := parseSize(strings.TrimSpace(row[4]))
		if err != nil {
			return nil, fmt.Errorf("parttable: CSV row %d (%s): invalid size: %w", i+1, name, err)
		}

		var flags uint32
		if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
			flags, err = parseFlags(strings.TrimSpace(row[5]))
			if err != nil {
				return nil, fmt.Errorf("parttable: CSV row %d (%s): invalid flags: %w", i+1, name, err)
			}
		}

		defs = append(defs, Def{
			Name:    name,
			Type:    typ,
			Subtype: subtype,
			Offset:  offset,
			Size:    size,
			Flags:   flags,
		})
	}
	return defs, nil
}

func parseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "app":
		return TypeApp, nil
	case "data":
		return TypeData, nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unrecognized type %q", s)
	}
	return Type(n), nil
}

func parseSubtype(typ Type, s string) (Subtype, error) {
	lower := strings.ToLower(s)
	if typ == TypeApp {
		switch {
		case lower == "factory":
			return SubtypeAppFactory, nil
		case lower == "test":
			return SubtypeAppTest, nil
		case strings.HasPrefix(lower, "ota_"):
			n, err := strconv.Atoi(lower[len("ota_"):])
			if err != nil || n < 0 || n > 15 {
				return 0, fmt.Errorf("unrecognized app subtype %q", s)
			}
			return SubtypeAppOTA(n), nil
		}
	} else {
		switch lower {
		case "ota":
			return SubtypeDataOTA, nil
		case "phy":
			return SubtypeDataPHY, nil
		case "nvs":
			return SubtypeDataNVS, nil
		case "nvs_keys":
			return SubtypeDataNVSKeys, nil
		case "spiffs":
			return SubtypeDataSPIFFS, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unrecognized subtype %q", s)
	}
	return Subtype(n), nil
}

// parseOffset returns 0 (auto-assign) for a blank field.
func parseOffset(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// parseSize accepts a trailing K or M multiplier, as gen_esp32part.py does.
func parseSize(s string) (uint32, error) {
	mult := uint64(1)
	switch {
	case strings.HasSuffix(strings.ToUpper(s), "K"):
		mult = 1024
		s = s[:len(s)-1]
	case strings.HasSuffix(strings.ToUpper(s), "M"):
		mult = 1024 * 1024
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n * mult), nil
}

func parseFlags(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
