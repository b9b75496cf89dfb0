package fiscal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDataHasAllObligations(t *testing.T) {
	d := NewData()

	assert.Equal(t, CurrentVersion, d.Version)
	require.Len(t, d.Obligations, len(ObligationTypes))
	for _, typ := range ObligationTypes {
		rec := d.Obligations[typ]
		require.NotNil(t, rec, typ)
		assert.Equal(t, typ, rec.Type)
		assert.False(t, rec.Applicable)
		assert.False(t, rec.Settled)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	for _, payload := range [][]byte{nil, []byte(""), []byte("null")} {
		d, err := Decode(payload)
		require.NoError(t, err)
		assert.Len(t, d.Obligations, len(ObligationTypes))
	}
}

func TestDecodeCurrentShapeRoundTrip(t *testing.T) {
	d := NewData()
	att := NewAttestation(mustParse(t, "01/01/2025"), true)
	d.Attestation = &att

	igsRec, err := d.Record(ObligationIGS)
	require.NoError(t, err)
	igsRec.SetApplicable(true)
	status := igsRec.EnsureIGS()
	status.AnnualRevenue = decimal.NewFromInt(2600000)
	require.NoError(t, status.Ledger.Record(1, decimal.NewFromInt(50000), "QT-01", nil))
	require.NoError(t, status.Recompute())

	raw, err := d.Encode()
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, decoded.Attestation)
	assert.Equal(t, "01/01/2025", decoded.Attestation.CreationDate)
	assert.Equal(t, "01/04/2025", decoded.Attestation.ValidityEndDate)

	rec := decoded.Obligations[ObligationIGS]
	require.NotNil(t, rec.IGS)
	assert.Equal(t, 6, rec.IGS.Assessment.Class)
	assert.True(t, rec.IGS.Ledger.TotalPaid().Equal(decimal.NewFromInt(50000)))
	assert.True(t, rec.IGS.BalanceRemaining.Equal(decimal.NewFromInt(100000)))
}

func TestDecodeLegacyBooleanObligations(t *testing.T) {
	// The legacy app stored some obligations as bare booleans meaning
	// "applicable, settled?".
	payload := []byte(`{"obligations":{"patente":true,"bail":false,"dsf":true}}`)

	d, err := Decode(payload)
	require.NoError(t, err)

	patente := d.Obligations[ObligationPatente]
	assert.True(t, patente.Applicable)
	assert.True(t, patente.Settled)

	bail := d.Obligations[ObligationBail]
	assert.True(t, bail.Applicable)
	assert.False(t, bail.Settled)

	// Types absent from the payload get default records.
	igsRec := d.Obligations[ObligationIGS]
	require.NotNil(t, igsRec)
	assert.False(t, igsRec.Applicable)
}

func TestDecodeRecordMissingTypeField(t *testing.T) {
	payload := []byte(`{"obligations":{"tva":{"applicable":true,"settled":false}}}`)

	d, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, ObligationTVA, d.Obligations[ObligationTVA].Type, "map key is authoritative")
}

func TestDecodeEnforcesInvariants(t *testing.T) {
	// A payload written by a buggy path can carry settled=true on a
	// non-applicable record; decode repairs it.
	payload := []byte(`{"obligations":{"cnps":{"type":"cnps","applicable":false,"settled":true}}}`)

	d, err := Decode(payload)
	require.NoError(t, err)
	assert.False(t, d.Obligations[ObligationCNPS].Settled)
}

func TestDecodeRecomputesStoredIGSTotals(t *testing.T) {
	// Stored totals drift when old code wrote payments without refreshing
	// the balance. Decode recomputes instead of trusting them.
	payload := []byte(`{"obligations":{"igs":{"type":"igs","applicable":true,
		"igs":{"annualRevenue":2600000,"cgaMember":false,
		"ledger":{"payments":[{"amount":50000},{"amount":50000},{"amount":0},{"amount":0}]},
		"totalPaid":0,"balanceRemaining":999999}}}}`)

	d, err := Decode(payload)
	require.NoError(t, err)

	status := d.Obligations[ObligationIGS].IGS
	require.NotNil(t, status)
	assert.True(t, status.TotalPaid.Equal(decimal.NewFromInt(100000)))
	assert.True(t, status.BalanceRemaining.Equal(decimal.NewFromInt(50000)))
}

func TestDecodeDropsUnknownObligationKeys(t *testing.T) {
	payload := []byte(`{"obligations":{"licence":true,"patente":true}}`)

	d, err := Decode(payload)
	require.NoError(t, err)
	_, ok := d.Obligations["licence"]
	assert.False(t, ok)
	assert.True(t, d.Obligations[ObligationPatente].Settled)
}

func TestDecodeMalformedPayload(t *testing.T) {
	_, err := Decode([]byte(`{"obligations":`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"obligations":{"dsf":"yes"}}`))
	assert.Error(t, err)
}

func TestEncodeStampsVersion(t *testing.T) {
	d, err := Decode([]byte(`{"obligations":{"patente":true}}`))
	require.NoError(t, err)

	raw, err := d.Encode()
	require.NoError(t, err)

	var probe struct {
		Version int `json:"version"`
	}
	require.NoError(t, json.Unmarshal(raw, &probe))
	assert.Equal(t, CurrentVersion, probe.Version)
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := ParseDate(s)
	require.NoError(t, err)
	return parsed
}
