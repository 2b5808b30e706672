package models

import "time"

// DonorClassification distinguishes the destination of a donor's milk.
type DonorClassification string

const (
	// HomologousInternal is a hospitalized mother donating for her own infant.
	HomologousInternal DonorClassification = "homologous_internal"
	// HomologousExternal is a discharged mother donating for her own infant.
	HomologousExternal DonorClassification = "homologous_external"
	// Heterologous is a donor whose milk enters the general bank stock.
	Heterologous DonorClassification = "heterologous"
)

// DonorStatus enumerates the administrative states of a donor.
type DonorStatus string

const (
	DonorPending   DonorStatus = "pending"
	DonorActive    DonorStatus = "active"
	DonorRejected  DonorStatus = "rejected"
	DonorSuspended DonorStatus = "suspended"
	DonorInactive  DonorStatus = "inactive"
)

// LabResult holds one serology test outcome from the donor screening panel.
type LabResult struct {
	Test     string    `bson:"test" json:"test"`
	Reactive bool      `bson:"reactive" json:"reactive"`
	TakenAt  time.Time `bson:"taken_at" json:"taken_at"`
}

// Donor is a registered milk donor.
type Donor struct {
	ID             string              `bson:"_id" json:"id"`
	FullName       string              `bson:"full_name" json:"full_name"`
	BirthDate      time.Time           `bson:"birth_date" json:"birth_date"`
	NationalID     string              `bson:"national_id" json:"national_id"`
	Classification DonorClassification `bson:"classification" json:"classification"`
	Status         DonorStatus         `bson:"status" json:"status"`
	ConsentSigned  bool                `bson:"consent_signed" json:"consent_signed"`
	ConsentDate    *time.Time          `bson:"consent_date,omitempty" json:"consent_date,omitempty"`
	LabResults     []LabResult         `bson:"lab_results,omitempty" json:"lab_results,omitempty"`
	RejectReason   string              `bson:"reject_reason,omitempty" json:"reject_reason,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updated_at"`
}

// HasReactiveResult reports whether any screening test came back reactive.
func (d Donor) HasReactiveResult() bool {
	for _, r := range d.LabResults {
		if r.Reactive {
			return true
		}
	}
	return false
}
