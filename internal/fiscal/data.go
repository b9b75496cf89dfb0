package fiscal

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrentVersion tags fiscal_data payloads written by this code. Version 0
// (absent) payloads come from the legacy app and get upgraded on decode.
const CurrentVersion = 2

// Data is the full fiscal profile persisted per client: the compliance
// attestation plus one record per tracked obligation.
type Data struct {
	Version     int                          `json:"version,omitempty"`
	Attestation *Attestation                 `json:"attestation,omitempty"`
	Obligations map[string]*ObligationRecord `json:"obligations"`
}

// NewData initializes an empty fiscal profile with one untouched record per
// obligation type, the shape created when a client's fiscal tab first opens.
func NewData() *Data {
	d := &Data{
		Version:     CurrentVersion,
		Obligations: make(map[string]*ObligationRecord, len(ObligationTypes)),
	}
	for _, t := range ObligationTypes {
		d.Obligations[t] = &ObligationRecord{Type: t}
	}
	return d
}

// Record returns the record for an obligation type, allocating a default one
// if the decoded payload predates that type.
func (d *Data) Record(obligationType string) (*ObligationRecord, error) {
	if !ValidObligationType(obligationType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObligation, obligationType)
	}
	if d.Obligations == nil {
		d.Obligations = make(map[string]*ObligationRecord)
	}
	rec, ok := d.Obligations[obligationType]
	if !ok || rec == nil {
		rec = &ObligationRecord{Type: obligationType}
		d.Obligations[obligationType] = rec
	}
	return rec, nil
}

// Encode serializes the profile in its wire form, stamping the current version.
func (d *Data) Encode() ([]byte, error) {
	d.Version = CurrentVersion
	return json.Marshal(d)
}

// rawData mirrors Data but defers obligation decoding, so each entry can be
// probed for its actual shape.
type rawData struct {
	Version     int                        `json:"version"`
	Attestation *Attestation               `json:"attestation"`
	Obligations map[string]json.RawMessage `json:"obligations"`
}

// Decode parses a fiscal_data payload, tolerating the shapes older code paths
// wrote: a missing version, obligation entries stored as bare booleans (the
// settled flag of an applicable obligation), records without a type field,
// and missing obligation types. Empty input yields a fresh profile. This is
// the only place legacy shapes are interpreted; everything past this boundary
// sees the current model.
func Decode(payload []byte) (*Data, error) {
	if len(payload) == 0 || string(payload) == "null" {
		return NewData(), nil
	}

	var raw rawData
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("malformed fiscal data: %w", err)
	}

	d := &Data{
		Version:     CurrentVersion,
		Attestation: raw.Attestation,
		Obligations: make(map[string]*ObligationRecord, len(ObligationTypes)),
	}

	for key, entry := range raw.Obligations {
		if !ValidObligationType(key) {
			// Unknown keys written by other builds are dropped, not fatal.
			continue
		}
		rec, err := decodeObligation(key, entry)
		if err != nil {
			return nil, fmt.Errorf("obligation %q: %w", key, err)
		}
		d.Obligations[key] = rec
	}

	// Backfill types the stored payload predates.
	for _, t := range ObligationTypes {
		if _, ok := d.Obligations[t]; !ok {
			d.Obligations[t] = &ObligationRecord{Type: t}
		}
	}

	return d, nil
}

func decodeObligation(key string, entry json.RawMessage) (*ObligationRecord, error) {
	var rec ObligationRecord
	if err := json.Unmarshal(entry, &rec); err == nil {
		// The type field was absent in early payloads; the map key is
		// authoritative either way.
		rec.Type = key
		rec.normalize()
		return &rec, nil
	}

	// Legacy shape: a bare boolean meaning "applicable and settled?".
	var settled bool
	if err := json.Unmarshal(entry, &settled); err == nil {
		return &ObligationRecord{Type: key, Applicable: true, Settled: settled}, nil
	}

	return nil, fmt.Errorf("unrecognized record shape %s", string(entry))
}

// normalize enforces the record invariants on decoded data: a non-applicable
// obligation can never be settled, and stored IGS totals are recomputed from
// their inputs rather than trusted.
func (r *ObligationRecord) normalize() {
	if !r.Applicable {
		r.Settled = false
	}
	if r.Type == ObligationIGS && r.IGS != nil {
		if r.IGS.AnnualRevenue.IsNegative() {
			// Bad legacy input; drop to zero rather than fail the whole decode.
			r.IGS.AnnualRevenue = decimal.Zero
		}
		_ = r.IGS.Recompute()
	}
}
