package util

// SubString returns up to length runes of str starting at begin, clamped to the string,
// safe for multi-byte text.
func SubString(str string, begin, length int) string {
	rs := []rune(str)
	lth := len(rs)

	if begin < 0 {
		begin = 0
	}
	if begin >= lth {
		begin = lth
	}
	end := begin + length
	if end > lth || length < 0 {
		end = lth
	}

	return string(rs[begin:end])
}

// Abbreviate shortens str to at most max runes, marking the cut with "...".
func Abbreviate(str string, max int) string {
	if len([]rune(str)) <= max {
		return str
	}
	return SubString(str, 0, max) + "..."
}
