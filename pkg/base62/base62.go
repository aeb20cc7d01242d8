// Package base62 converts non-negative integers to short alphanumeric codes and back.
//
// The encoding is a plain positional numeral system with base 62, so distinct inputs
// always produce distinct codes. Uniqueness of the produced codes therefore depends only
// on the uniqueness of the integers fed into Encode.
package base62

import (
	"errors"
	"math"
	"strings"
)

// Alphabet lists the digits of the numeral system in ascending order.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = uint64(len(Alphabet))

var (
	// ErrEmpty is returned when decoding an empty string.
	ErrEmpty = errors.New("empty base62 string")
	// ErrInvalidCharacter is returned when a string contains a character outside the Alphabet.
	ErrInvalidCharacter = errors.New("invalid character in base62 string")
	// ErrOverflow is returned when the decoded value does not fit into uint64.
	ErrOverflow = errors.New("base62 value overflows uint64")
)

var digitValues [256]int8

func init() {
	for i := range digitValues {
		digitValues[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		digitValues[Alphabet[i]] = int8(i)
	}
}

// Encode returns the base62 representation of n. Encode(0) is "0".
func Encode(n uint64) string {
	if n == 0 {
		return Alphabet[:1]
	}

	// 11 digits are enough for math.MaxUint64.
	var buf [11]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = Alphabet[n%base]
		n /= base
	}

	return string(buf[i:])
}

// Decode parses a base62 string produced by Encode.
func Decode(code string) (uint64, error) {
	if code == "" {
		return 0, ErrEmpty
	}

	var n uint64
	for i := 0; i < len(code); i++ {
		v := digitValues[code[i]]
		if v < 0 {
			return 0, ErrInvalidCharacter
		}

		if n > (math.MaxUint64-uint64(v))/base {
			return 0, ErrOverflow
		}
		n = n*base + uint64(v)
	}

	return n, nil
}

// IsValid reports whether code is non-empty and built only from Alphabet characters.
func IsValid(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}
