package model

// VisitSchema version 1. Visits are always scoped by patientId;
// visitedAt is unix seconds.
var VisitSchema = NewSchema(1, append(bookkeepingFields(),
	Field{Name: "patientId", Required: true, Validate: "uuid"},
	Field{Name: "visitedAt", Required: true, Validate: "gt=0"},
	Field{Name: "reason", Required: true, Validate: "min=1,max=500"},
	Field{Name: "diagnosis", Validate: "max=2000"},
	Field{Name: "prescription", Validate: "max=2000"},
	Field{Name: "fee", Validate: "gte=0"},
))

type CreateVisitRequest struct {
	PatientID    string  `json:"patientId" validate:"required,uuid"`
	VisitedAt    int64   `json:"visitedAt" validate:"required,gt=0"`
	Reason       string  `json:"reason" validate:"required,min=1,max=500"`
	Diagnosis    string  `json:"diagnosis" validate:"max=2000"`
	Prescription string  `json:"prescription" validate:"max=2000"`
	Fee          float64 `json:"fee" validate:"gte=0"`
}

func (r CreateVisitRequest) Document() Document {
	return Document{
		"patientId":    r.PatientID,
		"visitedAt":    r.VisitedAt,
		"reason":       r.Reason,
		"diagnosis":    r.Diagnosis,
		"prescription": r.Prescription,
		"fee":          r.Fee,
	}
}
