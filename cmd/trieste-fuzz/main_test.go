package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var noColor bool
	root := rootCmd(&noColor)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCheckCmdFindsNoFindingsOnTheFixture(t *testing.T) {
	out, err := runCLI(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "no findings")
}

func TestFuzzCmdSinglePassReportsPerPassSummary(t *testing.T) {
	out, err := runCLI(t, "fuzz", "--count", "5", "--seed", "3")
	// The add pass rejects an odd count of operands (see calcfixture), and
	// fuzz reports failing runs as an error.
	require.EqualError(t, err, "3 failing run(s)")
	assert.Contains(t, out, "mul:")
	assert.Contains(t, out, "add:")
}

func TestFuzzCmdSequenceReportsPassedAndFailedCounts(t *testing.T) {
	out, err := runCLI(t, "fuzz", "--sequence", "--count", "8", "--seed", "5")
	// A sequence run may legitimately report failures (the odd-count fold
	// case calcfixture documents), so only assert the summary line shape.
	_ = err
	assert.Contains(t, out, "passed")
	assert.Contains(t, out, "failed")
}
