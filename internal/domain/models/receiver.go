package models

import "time"

// Prescription is the standing feeding order for a receiver.
// PerTakeML is always derived as TotalDailyML / FeedingsPerDay.
type Prescription struct {
	TotalDailyML       float64  `bson:"total_daily_ml" json:"total_daily_ml"`
	FeedingsPerDay     int      `bson:"feedings_per_day" json:"feedings_per_day"`
	PerTakeML          float64  `bson:"per_take_ml" json:"per_take_ml"`
	MilkTypePreference MilkType `bson:"milk_type_preference,omitempty" json:"milk_type_preference,omitempty"`
	CaloricRequirement string   `bson:"caloric_requirement,omitempty" json:"caloric_requirement,omitempty"`
}

// Receiver is a neonate admitted to receive banked milk.
type Receiver struct {
	ID           string       `bson:"_id" json:"id"`
	FullName     string       `bson:"full_name" json:"full_name"`
	RecordNumber string       `bson:"record_number" json:"record_number"`
	AdmittedAt   time.Time    `bson:"admitted_at" json:"admitted_at"`
	Prescription Prescription `bson:"prescription" json:"prescription"`
	Discharged   bool         `bson:"discharged,omitempty" json:"discharged,omitempty"`
	DischargedAt *time.Time   `bson:"discharged_at,omitempty" json:"discharged_at,omitempty"`
	CreatedAt    time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at" json:"updated_at"`
}
