package models

import "time"

// MilkType classifies milk by lactation stage. Batches never mix types.
type MilkType string

const (
	Colostrum  MilkType = "colostrum"
	Transition MilkType = "transition"
	Mature     MilkType = "mature"
)

// JarStatus enumerates the lifecycle states of a milk jar.
type JarStatus string

const (
	JarRaw       JarStatus = "raw"
	JarVerified  JarStatus = "verified"
	JarTesting   JarStatus = "testing"
	JarAnalyzed  JarStatus = "analyzed"
	JarDiscarded JarStatus = "discarded"
)

// ArrivalState is the declared thermal condition of a jar at reception.
type ArrivalState string

const (
	ArrivalFresh        ArrivalState = "fresh"
	ArrivalRefrigerated ArrivalState = "refrigerated"
	ArrivalFrozen       ArrivalState = "frozen"
)

// CaloricClass is derived from the creamatocrit reading.
type CaloricClass string

const (
	Hypocaloric  CaloricClass = "hypocaloric"
	Normocaloric CaloricClass = "normocaloric"
	Hypercaloric CaloricClass = "hypercaloric"
)

// PhysicalResult captures the visual inspection of a jar.
type PhysicalResult struct {
	Color         string `bson:"color" json:"color"`
	OffFlavor     bool   `bson:"off_flavor" json:"off_flavor"`
	Contamination string `bson:"contamination,omitempty" json:"contamination,omitempty"`
}

// ChemicalResult captures the Dornic acidity and creamatocrit analysis of a jar.
type ChemicalResult struct {
	AcidityAliquots [3]float64   `bson:"acidity_aliquots" json:"acidity_aliquots"`
	AcidityAvg      float64      `bson:"acidity_avg" json:"acidity_avg"`
	Creamatocrit    float64      `bson:"creamatocrit" json:"creamatocrit"`
	CaloricClass    CaloricClass `bson:"caloric_class" json:"caloric_class"`
	ReviewFlagged   bool         `bson:"review_flagged,omitempty" json:"review_flagged,omitempty"`
}

// HistoryEntry is one append-only audit line on a jar.
type HistoryEntry struct {
	At     time.Time `bson:"at" json:"at"`
	Action string    `bson:"action" json:"action"`
	Detail string    `bson:"detail,omitempty" json:"detail,omitempty"`
	By     string    `bson:"by,omitempty" json:"by,omitempty"`
}

// MilkJar is one physical container of raw milk from a single extraction event.
//
// VolumeML is immutable after intake; consumption is accounted at batch
// level (MilkBatch.VolumeTotalML), never per jar.
type MilkJar struct {
	ID              string          `bson:"_id" json:"id"`
	Folio           string          `bson:"folio" json:"folio"`
	DonorID         string          `bson:"donor_id" json:"donor_id"`
	VolumeML        float64         `bson:"volume_ml" json:"volume_ml"`
	Type            MilkType        `bson:"type" json:"type"`
	ExtractedAt     time.Time       `bson:"extracted_at" json:"extracted_at"`
	ReceptionTempC  float64         `bson:"reception_temp_c" json:"reception_temp_c"`
	Arrival         ArrivalState    `bson:"arrival" json:"arrival"`
	Clean           bool            `bson:"clean" json:"clean"`
	Sealed          bool            `bson:"sealed" json:"sealed"`
	Labeled         bool            `bson:"labeled" json:"labeled"`
	Status          JarStatus       `bson:"status" json:"status"`
	Physical        *PhysicalResult `bson:"physical,omitempty" json:"physical,omitempty"`
	Chemical        *ChemicalResult `bson:"chemical,omitempty" json:"chemical,omitempty"`
	RejectionReason string          `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	BatchID         string          `bson:"batch_id,omitempty" json:"batch_id,omitempty"`
	History         []HistoryEntry  `bson:"history,omitempty" json:"history,omitempty"`
	CreatedAt       time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `bson:"updated_at" json:"updated_at"`
}

// Pooled reports whether the jar already belongs to a batch.
func (j MilkJar) Pooled() bool { return j.BatchID != "" }
