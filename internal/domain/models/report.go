package models

import "time"

// PeriodSummary aggregates bank activity over a date range.
type PeriodSummary struct {
	From               time.Time `bson:"from" json:"from"`
	To                 time.Time `bson:"to" json:"to"`
	JarsReceived       int       `bson:"jars_received" json:"jars_received"`
	JarsRejected       int       `bson:"jars_rejected" json:"jars_rejected"`
	BatchesCreated     int       `bson:"batches_created" json:"batches_created"`
	BatchesReleased    int       `bson:"batches_released" json:"batches_released"`
	BatchesDiscarded   int       `bson:"batches_discarded" json:"batches_discarded"`
	VolumeCollectedML  float64   `bson:"volume_collected_ml" json:"volume_collected_ml"`
	VolumeDispensedML  float64   `bson:"volume_dispensed_ml" json:"volume_dispensed_ml"`
	VolumeWastedML     float64   `bson:"volume_wasted_ml" json:"volume_wasted_ml"`
	ActiveDonors       int       `bson:"active_donors" json:"active_donors"`
	ReleasedStockML    float64   `bson:"released_stock_ml" json:"released_stock_ml"`
	GeneratedAt        time.Time `bson:"generated_at" json:"generated_at"`
}
