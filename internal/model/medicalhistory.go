package model

// MedicalHistorySchema version 1. One history document per patient.
var MedicalHistorySchema = NewSchema(1, append(bookkeepingFields(),
	Field{Name: "patientId", Required: true, Validate: "uuid"},
	Field{Name: "allergies", Validate: "max=2000"},
	Field{Name: "medications", Validate: "max=2000"},
	Field{Name: "conditions", Validate: "max=2000"},
	Field{Name: "surgeries", Validate: "max=2000"},
	Field{Name: "notes", Validate: "max=2000"},
))

type CreateMedicalHistoryRequest struct {
	PatientID   string `json:"patientId" validate:"required,uuid"`
	Allergies   string `json:"allergies" validate:"max=2000"`
	Medications string `json:"medications" validate:"max=2000"`
	Conditions  string `json:"conditions" validate:"max=2000"`
	Surgeries   string `json:"surgeries" validate:"max=2000"`
	Notes       string `json:"notes" validate:"max=2000"`
}

func (r CreateMedicalHistoryRequest) Document() Document {
	return Document{
		"patientId":   r.PatientID,
		"allergies":   r.Allergies,
		"medications": r.Medications,
		"conditions":  r.Conditions,
		"surgeries":   r.Surgeries,
		"notes":       r.Notes,
	}
}
