package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/randomization/listgen"
)

const stratifiedYAML = `
studyId: 4
configId: 12
name: Stratified trial
blockSize: 4
totalSlots: 8
allocationRatios:
  - armId: A
    weight: 1
  - armId: B
    weight: 1
stratificationFactors:
  - name: sex
    values: [M, F]
`

func TestLoadSchemeAppliesDefaults(t *testing.T) {
	s, err := loadScheme(strings.NewReader(stratifiedYAML))
	require.NoError(t, err)

	assert.Equal(t, uint(12), s.ID)
	assert.Equal(t, domain.TypeStratified, s.RandomizationType)
	assert.Equal(t, domain.DoubleBlind, s.BlindingLevel)
	assert.Equal(t, domain.SlotsPerStratum, s.SlotPolicy)
	require.Len(t, s.Factors, 1)
	assert.Equal(t, []string{"M", "F"}, s.Factors[0].Values)

	p, err := listgen.New(listgen.NewSeededRNG(1)).Preview(s, 3)
	require.NoError(t, err)
	assert.Equal(t, 16, p.TotalEntries)
	assert.Len(t, p.Entries, 3)
}

func TestLoadSchemeRejectsUnknownFields(t *testing.T) {
	_, err := loadScheme(strings.NewReader("name: x\nblocksize: 4\n"))
	require.Error(t, err)
}

func TestLoadSchemeRejectsDuplicateFactorValues(t *testing.T) {
	_, err := loadScheme(strings.NewReader(`
name: x
allocationRatios: [{armId: A, weight: 1}, {armId: B, weight: 1}]
stratificationFactors:
  - name: sex
    values: [M, M]
`))
	assert.True(t, domain.IsCode(err, domain.CodeValidation), "got %v", err)
}

func TestLoadSchemeRejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]string{
		"negative slots":       "totalSlots: -5\n",
		"unknown type":         "randomizationType: minimization\n",
		"stratified no factor": "randomizationType: stratified\n",
	}
	for name, extra := range cases {
		_, err := loadScheme(strings.NewReader("name: x\nallocationRatios: [{armId: A, weight: 1}, {armId: B, weight: 1}]\n" + extra))
		assert.True(t, domain.IsCode(err, domain.CodeValidation), "%s: got %v", name, err)
	}
}
