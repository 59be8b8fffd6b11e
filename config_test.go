package aliases_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeset/aliases"
)

func TestParsePointerMode(t *testing.T) {
	for _, mode := range []aliases.PointerMode{aliases.PointerModePrecise, aliases.PointerModeConservative} {
		parsed, err := aliases.ParsePointerMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}

	_, err := aliases.ParsePointerMode("bogus")
	assert.Error(t, err)
}

func TestParseMutabilityMode(t *testing.T) {
	for _, mode := range []aliases.MutabilityMode{aliases.DistinguishMut, aliases.IgnoreMut} {
		parsed, err := aliases.ParseMutabilityMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}

	_, err := aliases.ParseMutabilityMode("bogus")
	assert.Error(t, err)
}
