package models

import "time"

// AdministrationRoute is the route used to feed the dose.
type AdministrationRoute string

const (
	RouteOral        AdministrationRoute = "oral"
	RouteOrogastric  AdministrationRoute = "orogastric"
	RouteNasogastric AdministrationRoute = "nasogastric"
)

// AdministrationRecord is one immutable ledger entry for a feeding event.
// Records are never updated or deleted; a failed consumption apply marks
// the record void instead.
type AdministrationRecord struct {
	ID             string              `bson:"_id" json:"id"`
	Folio          string              `bson:"folio" json:"folio"`
	ReceiverID     string              `bson:"receiver_id" json:"receiver_id"`
	ReceiverName   string              `bson:"receiver_name" json:"receiver_name"`
	BatchID        string              `bson:"batch_id" json:"batch_id"`
	BatchFolio     string              `bson:"batch_folio" json:"batch_folio"`
	PrescribedML   float64             `bson:"prescribed_ml" json:"prescribed_ml"`
	AdministeredML float64             `bson:"administered_ml" json:"administered_ml"`
	DiscardedML    float64             `bson:"discarded_ml" json:"discarded_ml"`
	DiscardReason  string              `bson:"discard_reason,omitempty" json:"discard_reason,omitempty"`
	TempC          float64             `bson:"temp_c" json:"temp_c"`
	Route          AdministrationRoute `bson:"route" json:"route"`
	Responsible    string              `bson:"responsible" json:"responsible"`
	Warnings       []string            `bson:"warnings,omitempty" json:"warnings,omitempty"`
	At             time.Time           `bson:"at" json:"at"`
	Voided         bool                `bson:"voided,omitempty" json:"voided,omitempty"`
	VoidReason     string              `bson:"void_reason,omitempty" json:"void_reason,omitempty"`
}
