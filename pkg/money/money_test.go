package money

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatEnglish(t *testing.T) {
	f := NewFormatter("en")

	out, err := f.Format(123450, "eur")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(out, " EUR"), out)
	require.Contains(t, out, "1,234.5")
}

func TestFormatGerman(t *testing.T) {
	f := NewFormatter("de")

	out, err := f.Format(123450, "EUR")
	require.NoError(t, err)
	require.Contains(t, out, "1.234,5")
}

func TestFormatRejectsUnknownCurrency(t *testing.T) {
	_, err := NewFormatter("en").Format(100, "XYZQ")
	require.Error(t, err)
}

func TestUnknownLocaleFallsBack(t *testing.T) {
	f := NewFormatter("")
	require.Equal(t, "en", f.Locale().String())
}

func TestFormatDual(t *testing.T) {
	f := NewFormatter("en")

	out, err := f.FormatDual(10000, "EUR", "CHF", 0.95)
	require.NoError(t, err)
	require.Contains(t, out, "EUR")
	require.Contains(t, out, "(~ 95")
	require.True(t, strings.HasSuffix(out, "CHF)"), out)

	single, err := f.FormatDual(10000, "EUR", "", 0)
	require.NoError(t, err)
	require.NotContains(t, single, "(")

	same, err := f.FormatDual(10000, "EUR", "eur", 2)
	require.NoError(t, err)
	require.NotContains(t, same, "(")
}

func TestConvert(t *testing.T) {
	converted, err := Convert(1001, "EUR", "CHF", 0.5)
	require.NoError(t, err)
	require.EqualValues(t, 501, converted)

	_, err = Convert(100, "EUR", "CHF", 0)
	require.ErrorIs(t, err, ErrInvalidRate)

	_, err = Convert(100, "EUR", "XYZQ", 1)
	require.Error(t, err)
}

func TestConvertRescalesMinorUnits(t *testing.T) {
	yen, err := Convert(10000, "EUR", "JPY", 160)
	require.NoError(t, err)
	require.EqualValues(t, 16000, yen)

	cents, err := Convert(16000, "JPY", "EUR", 0.00625)
	require.NoError(t, err)
	require.EqualValues(t, 10000, cents)

	out, err := NewFormatter("en").FormatDual(10000, "EUR", "JPY", 160)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(out, "(~ 16,000 JPY)"), out)
}
