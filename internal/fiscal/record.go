package fiscal

import (
	"errors"

	"fiscalis/internal/igs"

	"github.com/shopspring/decimal"
)

// ErrNotApplicable is returned when marking an obligation settled while it is
// flagged not applicable for the client.
var ErrNotApplicable = errors.New("obligation is not applicable for this client")

// ErrUnknownObligation is returned for obligation types outside the tracked set.
var ErrUnknownObligation = errors.New("unknown obligation type")

// Obligation type constants. These are wire values persisted in fiscal_data
// JSON, shared with the records written by earlier versions of the app.
const (
	ObligationPatente      = "patente"
	ObligationBail         = "bail"
	ObligationTaxeFonciere = "taxe_fonciere"
	ObligationDSF          = "dsf"
	ObligationDARP         = "darp"
	ObligationIGS          = "igs"
	ObligationTVA          = "tva"
	ObligationCNPS         = "cnps"
)

// ObligationTypes lists every tracked obligation, in display order.
var ObligationTypes = []string{
	ObligationPatente,
	ObligationBail,
	ObligationTaxeFonciere,
	ObligationDSF,
	ObligationDARP,
	ObligationIGS,
	ObligationTVA,
	ObligationCNPS,
}

var validObligationTypes = func() map[string]bool {
	m := make(map[string]bool, len(ObligationTypes))
	for _, t := range ObligationTypes {
		m[t] = true
	}
	return m
}()

// ValidObligationType reports whether t is a tracked obligation type.
func ValidObligationType(t string) bool {
	return validObligationTypes[t]
}

// IGSStatus is the per-client IGS detail embedded in the "igs" obligation
// record: the assessment inputs, the derived assessment, the quarterly
// payment ledger, and the reconciled totals.
type IGSStatus struct {
	AnnualRevenue    decimal.Decimal `json:"annualRevenue"`
	CGAMember        bool            `json:"cgaMember"`
	Assessment       igs.Assessment  `json:"assessment"`
	Ledger           igs.Ledger      `json:"ledger"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	BalanceRemaining decimal.Decimal `json:"balanceRemaining"`
}

// Recompute re-derives the assessment and totals from the current inputs.
// Called after every change to the revenue, the CGA flag, or the ledger so
// the stored balance never goes stale against an edited assessment.
func (s *IGSStatus) Recompute() error {
	assessment, err := igs.Assess(s.AnnualRevenue, s.CGAMember)
	if err != nil {
		return err
	}
	s.Assessment = assessment
	totals := s.Ledger.Reconcile(assessment.FinalAmount)
	s.TotalPaid = totals.TotalPaid
	s.BalanceRemaining = totals.BalanceRemaining
	return nil
}

// ObligationRecord tracks one obligation type for one client. For payment
// obligations Settled means paid; for declaration obligations (DSF, DARP) it
// means filed.
type ObligationRecord struct {
	Type       string     `json:"type"`
	Applicable bool       `json:"applicable"`
	Settled    bool       `json:"settled"`
	IGS        *IGSStatus `json:"igs,omitempty"`
}

// SetApplicable toggles whether the obligation applies to the client.
// Clearing applicability forces Settled off, but keeps the IGS detail in
// place so re-enabling restores the prior assessment and payments.
func (r *ObligationRecord) SetApplicable(applicable bool) {
	r.Applicable = applicable
	if !applicable {
		r.Settled = false
	}
}

// SetSettled marks the obligation paid/filed. Settling a non-applicable
// obligation is rejected with ErrNotApplicable; un-settling is always allowed.
func (r *ObligationRecord) SetSettled(settled bool) error {
	if settled && !r.Applicable {
		return ErrNotApplicable
	}
	r.Settled = settled
	return nil
}

// EnsureIGS lazily allocates the IGS detail for the "igs" record.
func (r *ObligationRecord) EnsureIGS() *IGSStatus {
	if r.IGS == nil {
		r.IGS = &IGSStatus{}
	}
	return r.IGS
}
