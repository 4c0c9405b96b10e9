package efactura_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bct-trans/efactura-api/internal/domain/efactura"
	"github.com/bct-trans/efactura-api/internal/domain/entity"
)

// TestNextCall_FullTable pins the whole transition table: the status alone
// decides the gateway call, and undefined verb/state pairs are rejected.
func TestNextCall_FullTable(t *testing.T) {
	cases := []struct {
		status  entity.Status
		verb    efactura.Verb
		want    efactura.Call
		wantErr bool
	}{
		{entity.StatusNew, efactura.VerbAdvance, efactura.CallValidate, false},
		{"", efactura.VerbAdvance, efactura.CallValidate, false}, // legacy rows with empty status
		{entity.StatusValidated, efactura.VerbAdvance, efactura.CallUpload, false},
		{entity.StatusUploaded, efactura.VerbRefresh, efactura.CallCheckStatus, false},
		{entity.StatusValid, efactura.VerbRefresh, efactura.CallDownload, false},
		{entity.StatusStored, efactura.VerbAdvance, efactura.CallNone, false},
		{entity.StatusStored, efactura.VerbRefresh, efactura.CallNone, false},

		// undefined pairs
		{entity.StatusNew, efactura.VerbRefresh, efactura.CallNone, true},
		{entity.StatusValidated, efactura.VerbRefresh, efactura.CallNone, true},
		{entity.StatusUploaded, efactura.VerbAdvance, efactura.CallNone, true},
		{entity.StatusValid, efactura.VerbAdvance, efactura.CallNone, true},
		{entity.Status("garbage"), efactura.VerbAdvance, efactura.CallNone, true},
	}
	for _, c := range cases {
		got, err := efactura.NextCall(c.status, c.verb)
		if c.wantErr {
			assert.Error(t, err, "status=%q verb=%q", c.status, c.verb)
			continue
		}
		require.NoError(t, err, "status=%q verb=%q", c.status, c.verb)
		assert.Equal(t, c.want, got, "status=%q verb=%q", c.status, c.verb)
	}
}

// TestNextStatus_Monotonic walks the success path and checks the exact order
// nproc -> validated -> uploaded -> valid -> store with no skips.
func TestNextStatus_Monotonic(t *testing.T) {
	order := []entity.Status{
		entity.StatusNew,
		entity.StatusValidated,
		entity.StatusUploaded,
		entity.StatusValid,
		entity.StatusStored,
	}
	verbs := []efactura.Verb{
		efactura.VerbAdvance, efactura.VerbAdvance,
		efactura.VerbRefresh, efactura.VerbRefresh,
	}
	s := order[0]
	for i, v := range verbs {
		call, err := efactura.NextCall(s, v)
		require.NoError(t, err)
		s = efactura.NextStatus(call, s)
		assert.Equal(t, order[i+1], s)
	}
	// terminal: both verbs keep the state
	call, err := efactura.NextCall(s, efactura.VerbAdvance)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusStored, efactura.NextStatus(call, s))
}

func TestEligible(t *testing.T) {
	ro := &entity.Company{CountryCode: "RO", VATNumber: "RO12345678"}
	de := &entity.Company{CountryCode: "DE", VATNumber: "DE811907980"}

	after := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, efactura.Eligible(&entity.Invoice{Client: ro, Date: after}))
	assert.True(t, efactura.Eligible(&entity.Invoice{Client: ro, Date: efactura.Cutover}))
	assert.False(t, efactura.Eligible(&entity.Invoice{Client: ro, Date: before}))
	assert.False(t, efactura.Eligible(&entity.Invoice{Client: de, Date: after}))
	assert.False(t, efactura.Eligible(&entity.Invoice{Date: after}))
	assert.False(t, efactura.Eligible(nil))
}
