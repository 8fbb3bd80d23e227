package testrunner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   Status
		text     string
		terminal bool
	}{
		{NotStarted, "NOT_STARTED", false},
		{Running, "RUNNING", false},
		{Failure, "FAILURE", true},
		{Error, "ERROR", true},
		{Success, "SUCCESS", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.text, tt.status.String())
		assert.Equal(t, tt.terminal, tt.status.Terminal(), tt.text)

		b, err := tt.status.MarshalText()
		require.NoError(t, err)
		var back Status
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, tt.status, back)
	}

	assert.Equal(t, "Status(9)", Status(9).String())
	_, err := Status(9).MarshalText()
	assert.Error(t, err)
	var s Status
	assert.Error(t, s.UnmarshalText([]byte("DONE")))
}

func TestParseSuite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Suite
	}{
		{"SYSTEM_TEST", SystemTest},
		{"system", SystemTest},
		{"STAGING_SETUP_TEST", StagingSetupTest},
		{"staging-setup", StagingSetupTest},
		{"staging", StagingTest},
		{"Production", ProductionTest},
		{"production_test", ProductionTest},
	}
	for _, tt := range tests {
		got, err := ParseSuite(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseSuite("perf")
	assert.ErrorIs(t, err, ErrUnknownSuite)
}

func TestSuiteForms(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Suite{SystemTest, StagingSetupTest, StagingTest, ProductionTest}, AllSuites())
	for _, s := range AllSuites() {
		byName, err := ParseSuite(s.String())
		require.NoError(t, err)
		byPath, err := ParseSuite(s.Path())
		require.NoError(t, err)
		assert.Equal(t, s, byName)
		assert.Equal(t, s, byPath)
	}
	assert.Equal(t, "", Suite(7).Path())
}

func TestSuiteJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(map[string]Suite{"suite": StagingSetupTest})
	require.NoError(t, err)
	assert.JSONEq(t, `{"suite":"STAGING_SETUP_TEST"}`, string(b))

	var v struct{ Suite Suite }
	require.NoError(t, json.Unmarshal([]byte(`{"Suite":"production"}`), &v))
	assert.Equal(t, ProductionTest, v.Suite)
}
