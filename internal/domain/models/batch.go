package models

import "time"

// BatchType aggregates the donor classifications of a batch's members.
type BatchType string

const (
	BatchHomologous   BatchType = "homologous"
	BatchHeterologous BatchType = "heterologous"
)

// BatchStatus enumerates the lifecycle states of a pooled batch.
type BatchStatus string

const (
	BatchRaw        BatchStatus = "raw"
	BatchQuarantine BatchStatus = "quarantine"
	BatchReleased   BatchStatus = "released"
	BatchDiscarded  BatchStatus = "discarded"
)

// MicrobiologyResult is the outcome of the post-pasteurization culture.
type MicrobiologyResult string

const (
	CultureNegative MicrobiologyResult = "Negativo"
	CulturePositive MicrobiologyResult = "Positivo"
)

// TempPoint is one reading on the pasteurization temperature curve.
type TempPoint struct {
	Minute int     `bson:"minute" json:"minute"`
	TempC  float64 `bson:"temp_c" json:"temp_c"`
}

// PasteurizationRecord documents the Holder treatment applied to a batch.
type PasteurizationRecord struct {
	TempCurve   []TempPoint `bson:"temp_curve,omitempty" json:"temp_curve,omitempty"`
	Responsible string      `bson:"responsible" json:"responsible"`
	Completed   bool        `bson:"completed" json:"completed"`
	At          time.Time   `bson:"at" json:"at"`
}

// MicrobiologyRecord documents the culture sowing and its manually entered result.
type MicrobiologyRecord struct {
	SowedAt     time.Time          `bson:"sowed_at" json:"sowed_at"`
	Result      MicrobiologyResult `bson:"result" json:"result"`
	ResultAt    time.Time          `bson:"result_at" json:"result_at"`
	Responsible string             `bson:"responsible" json:"responsible"`
}

// StorageLocation is a slot in the cold-chain equipment.
type StorageLocation struct {
	EquipmentID string `bson:"equipment_id" json:"equipment_id"`
	Shelf       string `bson:"shelf" json:"shelf"`
	Position    string `bson:"position" json:"position"`
}

// MilkBatch is a pool of jars mixed for pasteurization and release.
//
// VolumeTotalML is the single mutable counter of the model: it starts as
// the sum of member jar volumes and only decreases through administration.
// Version guards that decrement against lost updates.
type MilkBatch struct {
	ID              string                `bson:"_id" json:"id"`
	Folio           string                `bson:"folio" json:"folio"`
	DonorIDs        []string              `bson:"donor_ids" json:"donor_ids"`
	JarIDs          []string              `bson:"jar_ids" json:"jar_ids"`
	Type            BatchType             `bson:"type" json:"type"`
	MilkType        MilkType              `bson:"milk_type" json:"milk_type"`
	VolumeTotalML   float64               `bson:"volume_total_ml" json:"volume_total_ml"`
	Status          BatchStatus           `bson:"status" json:"status"`
	CreatedAt       time.Time             `bson:"created_at" json:"created_at"`
	ExpiresAt       time.Time             `bson:"expires_at" json:"expires_at"`
	Pasteurization  *PasteurizationRecord `bson:"pasteurization,omitempty" json:"pasteurization,omitempty"`
	Microbiology    *MicrobiologyRecord   `bson:"microbiology,omitempty" json:"microbiology,omitempty"`
	Location        *StorageLocation      `bson:"location,omitempty" json:"location,omitempty"`
	RejectionReason string                `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	Version         int64                 `bson:"version" json:"version"`
	UpdatedAt       time.Time             `bson:"updated_at" json:"updated_at"`
}
