package currency

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders v with two decimals and thousands separators,
// e.g. 1234.5 -> "1,234.50".
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return printer.Sprintf("%.2f", v)
	}
	return printer.Sprintf("%.2f", round2(v).InexactFloat64())
}

// FormatCNY renders v as a yuan amount, e.g. "¥1,234.50".
func FormatCNY(v float64) string {
	return "¥" + FormatAmount(v)
}

func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

var (
	capitalDigits = []string{"零", "壹", "贰", "叁", "肆", "伍", "陆", "柒", "捌", "玖"}
	digitUnits    = []string{"", "拾", "佰", "仟"}
	groupUnits    = []string{"", "万", "亿", "万亿"}
)

// MaxUppercaseAmount bounds the magnitude ChineseUppercase can write; the
// largest group unit is 万亿.
const MaxUppercaseAmount = 1e16

var ErrAmountOutOfRange = errors.New("amount out of range for uppercase")

// OutOfRangeUppercase is what ToChineseUppercase writes for an amount it
// cannot express.
const OutOfRangeUppercase = "金额超出范围"

// ToChineseUppercase renders v as an RMB capital amount as written on
// invoices and bills, e.g. 10005 -> "壹万零伍元整". Fen are rounded half-up.
// Amounts ChineseUppercase rejects render as OutOfRangeUppercase.
func ToChineseUppercase(v float64) string {
	s, err := ChineseUppercase(v)
	if err != nil {
		return OutOfRangeUppercase
	}
	return s
}

// ChineseUppercase is ToChineseUppercase with an error for NaN, ±Inf and
// magnitudes of MaxUppercaseAmount or more.
func ChineseUppercase(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= MaxUppercaseAmount {
		return "", ErrAmountOutOfRange
	}
	d := round2(v)
	if d.IsZero() {
		return "零元整", nil
	}

	var b strings.Builder
	if d.IsNegative() {
		b.WriteString("负")
		d = d.Neg()
	}

	cents := d.Shift(2).IntPart()
	integer := cents / 100
	jiao := (cents / 10) % 10
	fen := cents % 10

	if integer > 0 {
		b.WriteString(integerPart(integer))
		b.WriteString("元")
	}
	if jiao == 0 && fen == 0 {
		b.WriteString("整")
		return b.String(), nil
	}
	if jiao > 0 {
		b.WriteString(capitalDigits[jiao])
		b.WriteString("角")
	}
	if fen > 0 {
		b.WriteString(capitalDigits[fen])
		b.WriteString("分")
	}
	return b.String(), nil
}

// integerPart converts n > 0 group by group, four digits at a time. A 零 is
// inserted between groups when a lower group is short of four digits or a
// whole group was zero.
func integerPart(n int64) string {
	var groups []int64
	for n > 0 {
		groups = append(groups, n%10000)
		n /= 10000
	}
	var b strings.Builder
	pendingZero := false
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if g == 0 {
			if b.Len() > 0 {
				pendingZero = true
			}
			continue
		}
		if b.Len() > 0 && (pendingZero || g < 1000) {
			b.WriteString("零")
		}
		pendingZero = false
		b.WriteString(groupDigits(g))
		b.WriteString(groupUnits[i])
	}
	return b.String()
}

func groupDigits(g int64) string {
	var b strings.Builder
	zero := false
	for pos := 3; pos >= 0; pos-- {
		div := int64(1)
		for i := 0; i < pos; i++ {
			div *= 10
		}
		digit := (g / div) % 10
		if digit == 0 {
			if b.Len() > 0 {
				zero = true
			}
			continue
		}
		if zero {
			b.WriteString("零")
			zero = false
		}
		b.WriteString(capitalDigits[digit])
		b.WriteString(digitUnits[pos])
	}
	return b.String()
}
