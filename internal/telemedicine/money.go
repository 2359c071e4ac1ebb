package telemedicine

import (
	"fmt"
	"math"
	"strconv"
)

// Money is a BRL amount in minor units (centavos).
type Money int64

// MoneyFromFloat converts a decimal amount as sent by upstream APIs.
func MoneyFromFloat(amount float64) Money {
	return Money(math.Round(amount * 100))
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return int64(m)
}

// Float returns the decimal amount.
func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders minor units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(m), 10)), nil
}
