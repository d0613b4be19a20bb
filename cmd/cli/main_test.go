package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terptracker/pkg/models"
)

func TestParseAssignments(t *testing.T) {
	terps, totals, err := parseAssignments([]string{"beta-myrcene=0.6", "limonene=20", "THCA=24.5", "cbd=nd"})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, terps[models.Myrcene], 1e-12)
	assert.InDelta(t, 0.2, terps[models.Limonene], 1e-12)
	assert.InDelta(t, 0.245, totals.Get(models.THCA), 1e-12)
	assert.False(t, totals.Has(models.CBD))
	assert.NotContains(t, terps, "thca")
}

func TestParseAssignments_Errors(t *testing.T) {
	_, _, err := parseAssignments([]string{"myrcene"})
	assert.Error(t, err)

	_, _, err = parseAssignments([]string{"thc=0.2"})
	assert.Error(t, err)
}

func TestClassifyCommand(t *testing.T) {
	cmd := rootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"classify", "myrcene=0.6", "limonene=0.2", "thc=0.2"})
	require.NoError(t, cmd.Execute())

	var got classifyOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, models.CategoryBlue, got.Category)
	assert.NotEmpty(t, got.TraditionalLabel)
	require.NotNil(t, got.Effects)
	assert.NotEmpty(t, got.Effects.OverallCharacter)
}
