package pda

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

func TestFindProgramAddress(t *testing.T) {
	workspace := types.Pubkey{1, 2, 3}
	seeds := [][]byte{[]byte("budget"), workspace[:]}

	addr, bump, err := FindProgramAddress(seeds, types.BulldozerProgramAddr, nil)
	require.NoError(t, err)

	again, againBump, err := FindProgramAddress(seeds, types.BulldozerProgramAddr, nil)
	require.NoError(t, err)
	assert.Equal(t, addr, again)
	assert.Equal(t, bump, againBump)

	direct, err := CreateProgramAddress(append(seeds, []byte{bump}), types.BulldozerProgramAddr)
	require.NoError(t, err)
	assert.Equal(t, addr, direct)

	ok, err := VerifyProgramAddress(addr, seeds, bump, types.BulldozerProgramAddr, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	other, _, err := FindProgramAddress([][]byte{[]byte("workspace_stats"), workspace[:]}, types.BulldozerProgramAddr, nil)
	require.NoError(t, err)
	assert.NotEqual(t, addr, other)

	otherProgram, _, err := FindProgramAddress(seeds, types.SystemProgramAddr, nil)
	require.NoError(t, err)
	assert.NotEqual(t, addr, otherProgram)
}

func TestFindProgramAddressMetered(t *testing.T) {
	meter := svm.NewComputeMeter(svm.CUDefault)
	_, _, err := FindProgramAddress([][]byte{[]byte("user"), make([]byte, 32)}, types.BulldozerProgramAddr, meter)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, meter.Consumed(), svm.CUFindProgramAddress)

	starved := svm.NewComputeMeter(1)
	_, _, err = FindProgramAddress([][]byte{[]byte("user")}, types.BulldozerProgramAddr, starved)
	assert.ErrorIs(t, err, svm.ErrComputeExceeded)
}

func TestSeedLimits(t *testing.T) {
	_, err := CreateProgramAddress([][]byte{make([]byte, MaxSeedLen+1)}, types.BulldozerProgramAddr)
	assert.ErrorIs(t, err, ErrMaxSeedLengthExceeded)

	_, _, err = FindProgramAddress(make([][]byte, MaxSeeds), types.BulldozerProgramAddr, nil)
	assert.ErrorIs(t, err, ErrMaxSeedsExceeded)
}
