package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestParams_Validate(t *testing.T) {
	limits := DefaultParamLimits()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validParams().Validate(limits))
	})

	tests := []struct {
		name   string
		mutate func(*TestParams)
		field  string
	}{
		{"empty operator", func(p *TestParams) { p.Operator = "  " }, "operator"},
		{"empty sample id", func(p *TestParams) { p.SampleID = "" }, "sampleId"},
		{"zero volume", func(p *TestParams) { p.Volume = 0 }, "volume"},
		{"volume above max", func(p *TestParams) { p.Volume = 250 }, "volume"},
		{"negative days", func(p *TestParams) { p.DaysSincePrior = -1 }, "days"},
		{"days above max", func(p *TestParams) { p.DaysSincePrior = 31 }, "days"},
		{"dilution below min", func(p *TestParams) { p.Dilution = 0.5 }, "dilution"},
		{"dilution above max", func(p *TestParams) { p.Dilution = 5000 }, "dilution"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)

			err := p.Validate(limits)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}

	t.Run("multiple failures aggregate", func(t *testing.T) {
		p := TestParams{}
		err := p.Validate(limits)
		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.GreaterOrEqual(t, len(verrs), 4)
	})
}
