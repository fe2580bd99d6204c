package hexconv

// Halfbyte maps a hex digit to its value. Invalid digits map to 0xFF, so
// a pair of parsed nibbles can be validated at once: a|b > 0x0f reports
// that at least one of them was not a hex digit.
var Halfbyte = func() (table [256]byte) {
	for i := range table {
		table[i] = 0xFF
	}

	for char := byte('0'); char <= '9'; char++ {
		table[char] = char - '0'
	}

	for char := byte('a'); char <= 'f'; char++ {
		table[char] = char - 'a' + 0xa
	}

	for char := byte('A'); char <= 'F'; char++ {
		table[char] = char - 'A' + 0xA
	}

	return table
}()
