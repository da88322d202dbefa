package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize("(212) 555-0123")
	require.NoError(t, err)
	assert.Equal(t, "+12125550123", got)

	got, err = Normalize("+12125550123")
	require.NoError(t, err)
	assert.Equal(t, "+12125550123", got)
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"", "123", "not a number", "+1"} {
		_, err := Normalize(raw)
		assert.ErrorIs(t, err, ErrInvalid, "input %q", raw)
	}
}

func TestFormatNationalFallsBack(t *testing.T) {
	assert.Equal(t, "(212) 555-0123", FormatNational("+12125550123"))
	assert.Equal(t, "garbage", FormatNational("garbage"))
}
