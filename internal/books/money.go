package books

import "github.com/govalues/money"

// MustAmount builds an amount from minor units, panicking on an unknown
// currency code. Callers pass codes already validated at startup.
func MustAmount(currency string, minor int64) money.Amount {
	a, err := money.NewAmountFromMinorUnits(currency, minor)
	if err != nil {
		panic("books: bad amount: " + err.Error())
	}
	return a
}

// Minor returns the amount in minor units. All amounts in the book are
// two-decimal, so the conversion is always exact.
func Minor(a money.Amount) int64 {
	units, _ := a.MinorUnits()
	return units
}

// FormatMinor renders minor units as a plain decimal string, e.g. 150050
// becomes "1500.50". No currency symbol or digit grouping; presentation
// beyond this belongs to the caller.
func FormatMinor(minor int64) string {
	neg := minor < 0
	if neg {
		minor = -minor
	}
	whole, cents := minor/100, minor%100
	buf := make([]byte, 0, 24)
	if neg {
		buf = append(buf, '-')
	}
	buf = appendInt(buf, whole)
	buf = append(buf, '.', byte('0'+cents/10), byte('0'+cents%10))
	return string(buf)
}

func appendInt(buf []byte, n int64) []byte {
	if n == 0 {
		return append(buf, '0')
	}
	var tmp [20]byte
	i := len(tmp)
	for n > 0 {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
	}
	return append(buf, tmp[i:]...)
}
