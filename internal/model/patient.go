package model

// Gender values accepted on patient records.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// PatientSchema version 1. socialId is the national identifier, unique
// per patient, always 10 digits.
var PatientSchema = NewSchema(1, append(bookkeepingFields(),
	Field{Name: "socialId", Required: true, Validate: "len=10,numeric"},
	Field{Name: "firstName", Required: true, Validate: "min=1,max=100"},
	Field{Name: "lastName", Required: true, Validate: "min=1,max=100"},
	Field{Name: "gender", Required: true, Validate: "oneof=male female other"},
	Field{Name: "age", Validate: "gte=0,lte=150"},
	Field{Name: "phone", Validate: "max=20"},
	Field{Name: "address", Validate: "max=500"},
	Field{Name: "notes", Validate: "max=2000"},
))

type CreatePatientRequest struct {
	SocialID  string `json:"socialId" validate:"required,len=10,numeric"`
	FirstName string `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100"`
	Gender    string `json:"gender" validate:"required,oneof=male female other"`
	Age       int    `json:"age" validate:"gte=0,lte=150"`
	Phone     string `json:"phone" validate:"max=20"`
	Address   string `json:"address" validate:"max=500"`
	Notes     string `json:"notes" validate:"max=2000"`
}

// Document casts the validated request into canonical storage shape.
func (r CreatePatientRequest) Document() Document {
	return Document{
		"socialId":  r.SocialID,
		"firstName": r.FirstName,
		"lastName":  r.LastName,
		"gender":    r.Gender,
		"age":       r.Age,
		"phone":     r.Phone,
		"address":   r.Address,
		"notes":     r.Notes,
	}
}
