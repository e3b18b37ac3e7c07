package efi

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodeUTF16 transcodes s into NUL terminated UTF-16LE code units, the
// firmware's CHAR16 string convention.
func EncodeUTF16(s string) ([]uint16, error) {
	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, err
	}

	units := make([]uint16, len(b)/2+1)
	for i := 0; i < len(b)/2; i++ {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
		if units[i] == 0 {
			return nil, fmt.Errorf("string contains NUL at code unit %d", i)
		}
	}
	return units, nil
}

// DecodeUTF16 transcodes CHAR16 units up to the first NUL (or the end of the
// slice) into a Go string.
func DecodeUTF16(units []uint16) (string, error) {
	n := 0
	for n < len(units) && units[n] != 0 {
		n++
	}

	b := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(b[2*i:], units[i])
	}

	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
