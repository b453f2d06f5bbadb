package backlog

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Of(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint64(0), Of(0, 0))
	assert.Equal(uint64(3), Of(5, 2))
	assert.Equal(uint64(0), Of(0, 1))
	assert.Equal(uint64(0), Of(2, math.MaxUint64))
}

func Test_Classify(t *testing.T) {
	suite := []struct {
		backlog  uint64
		expected State
	}{
		{0, StateEmpty},
		{1, StateNominal},
		{6, StateNominal},
		{7, StateCatchingUp},
		{100, StateCatchingUp},
	}

	for _, tCase := range suite {
		t.Run(fmt.Sprintf("backlog-%d", tCase.backlog), func(t *testing.T) {
			assert.Equal(t, tCase.expected, Classify(tCase.backlog, 6))
		})
	}
}

func Test_State_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("empty", StateEmpty.String())
	assert.Equal("nominal", StateNominal.String())
	assert.Equal("catching-up", StateCatchingUp.String())
	assert.Equal("unknown", State(99).String())
}

func Test_Governor(t *testing.T) {
	assert := assert.New(t)

	gov := NewGovernor(10, 6)
	assert.Equal(uint64(6), gov.Bound())
	assert.Equal(uint64(10), gov.warmUp)

	// Still warming up, the backlog is ignored
	read, skipped := gov.Check(9, 0, 100)
	assert.Equal(uint64(0), read)
	assert.Zero(skipped)

	// Within the bound
	read, skipped = gov.Check(10, 20, 26)
	assert.Equal(uint64(20), read)
	assert.Zero(skipped)

	// Over the bound, snap to the writer
	read, skipped = gov.Check(10, 20, 27)
	assert.Equal(uint64(27), read)
	assert.Equal(uint64(7), skipped)

	// Reader ahead of the writer, no underflow
	read, skipped = gov.Check(10, 5, 0)
	assert.Equal(uint64(5), read)
	assert.Zero(skipped)
}
