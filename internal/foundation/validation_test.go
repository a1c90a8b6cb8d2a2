package foundation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
)

func TestValidatorChainCollectsAllFailures(t *testing.T) {
	chain := NewValidatorChain(
		func(n int) ValidationResult { return Check(n > 0, "count", "positive", "must be positive, got %d", n) },
		func(n int) ValidationResult { return Check(n%2 == 0, "count", "even", "must be even") },
	)

	assert.True(t, chain.Validate(4).Valid)

	res := chain.Validate(-1)
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "positive", res.Errors[0].Code)

	err := res.ToError()
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Contains(t, err.Error(), "count: must be positive, got -1; count: must be even")
}

func TestValidToErrorIsNil(t *testing.T) {
	assert.NoError(t, Valid().ToError())
	assert.NoError(t, Valid().Combine(Valid()).ToError())
}

func TestFieldErrorWithoutField(t *testing.T) {
	assert.Equal(t, "broken", FieldError{Message: "broken"}.Error())
}
