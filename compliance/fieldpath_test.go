package compliance_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payslip-compliance/compliance"
)

func TestParseFieldPath_KnownShapes(t *testing.T) {
	for _, s := range []string{
		"salaire_brut", "net_imposable", "net_social", "cout_global",
		"maladie.tauxp", "retraite_t1.bases", "ceg_t2.montantp",
	} {
		p, err := compliance.ParseFieldPath(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, p.String())
	}
}

func TestParseFieldPath_RejectsEverythingElse(t *testing.T) {
	// Paths are data, never code: anything outside the two shapes fails.
	for _, s := range []string{
		"", "maladie", "maladie.", ".tauxp", "maladie.tauxp.x",
		"maladie.rate", "Maladie.tauxp", "maladie[0]", "constructor.constructor",
		"salaire_brut; alert(1)", "maladie.tauxp()",
	} {
		_, err := compliance.ParseFieldPath(s)
		assert.ErrorIs(t, err, compliance.ErrInvalidFieldPath, s)
	}
}

func TestFieldPath_Contribution(t *testing.T) {
	assert.Empty(t, compliance.MustFieldPath("salaire_brut").Contribution())
	assert.Equal(t, "maladie", compliance.MustFieldPath("maladie.basep").Contribution())
}

func TestRateField(t *testing.T) {
	p, err := compliance.RateField("fnal", compliance.SideEmployer)
	require.NoError(t, err)
	assert.Equal(t, "fnal.tauxp", p.String())

	p, err = compliance.RateField("fnal", compliance.SideEmployee)
	require.NoError(t, err)
	assert.Equal(t, "fnal.tauxs", p.String())
}

func TestFieldPath_Resolve(t *testing.T) {
	rec := payslip("5000", "0.13")

	v, err := compliance.MustFieldPath("salaire_brut").Resolve(rec)
	require.NoError(t, err)
	assert.True(t, v.Equal(dec("5000")))

	v, err = compliance.MustFieldPath("maladie.tauxp").Resolve(rec)
	require.NoError(t, err)
	assert.True(t, v.Equal(dec("0.13")))
}

func TestFieldPath_Resolve_FailsClosed(t *testing.T) {
	rec := payslip("5000", "0.13")

	cases := map[string]string{
		"net_social":    "net_social", // summary figure absent
		"fnal.tauxp":    "fnal",       // contribution absent
		"maladie.tauxs": "tauxs",      // side absent
	}
	for path, segment := range cases {
		_, err := compliance.MustFieldPath(path).Resolve(rec)

		var fieldErr *compliance.UnresolvedFieldError
		require.True(t, errors.As(err, &fieldErr), path)
		assert.Equal(t, segment, fieldErr.Segment, path)
		assert.ErrorIs(t, err, compliance.ErrUnresolvedField)
	}

	// The zero path resolves nothing and does not panic
	_, err := compliance.FieldPath{}.Resolve(rec)
	assert.ErrorIs(t, err, compliance.ErrUnresolvedField)
}
