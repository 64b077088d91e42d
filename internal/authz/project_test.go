package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrec/clinic-api/internal/model"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
)

func TestProjectWhitelist(t *testing.T) {
	doc := model.Document{
		"socialId":  "1234567890",
		"firstName": "Jane",
		"lastName":  "Doe",
	}
	out := Project(doc, Whitelist("socialId", "firstName"), model.PatientSchema.ReadableFields())

	assert.Equal(t, model.Document{"socialId": "1234567890", "firstName": "Jane"}, out)
	// Input is untouched.
	assert.Contains(t, doc, "lastName")
}

func TestProjectBoundTrumpsFilter(t *testing.T) {
	// A wildcard filter cannot project in a field the entity does not
	// define, nor an internal one.
	doc := model.Document{
		"firstName":    "Jane",
		"passwordHash": "x",
		"unknown":      1,
	}
	out := Project(doc, AllAttributes(), model.PatientSchema.ReadableFields())

	assert.Equal(t, model.Document{"firstName": "Jane"}, out)
}

func TestProjectWildcardKeepsReadableFields(t *testing.T) {
	doc := model.Document{
		model.FieldID: "abc",
		"socialId":    "1234567890",
		"firstName":   "Jane",
	}
	out := Project(doc, AllAttributes(), model.PatientSchema.ReadableFields())
	assert.Equal(t, doc, out)
}

func TestProjectAllPreservesOrderAndLength(t *testing.T) {
	docs := []model.Document{
		{"firstName": "A", "lastName": "B"},
		{"firstName": "C"},
	}
	out := ProjectAll(docs, Whitelist("firstName"), model.PatientSchema.ReadableFields())
	require.Len(t, out, 2)
	assert.Equal(t, model.Document{"firstName": "A"}, out[0])
	assert.Equal(t, model.Document{"firstName": "C"}, out[1])
}

func TestCheckUpdatePayloadRejectsUnknownField(t *testing.T) {
	err := CheckUpdatePayload(model.Document{
		"firstName": "Jane",
		"nonsense":  true,
	}, AllAttributes(), model.PatientSchema.UpdatableFields(), ResourcePatient)

	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindUnauthorized, pkgerrors.KindOf(err))
	assert.Contains(t, err.Error(), "patient.nonsense")
}

func TestCheckUpdatePayloadRejectsFilteredField(t *testing.T) {
	err := CheckUpdatePayload(model.Document{
		"socialId": "1234567890",
	}, Blacklist("socialId"), model.PatientSchema.UpdatableFields(), ResourcePatient)

	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindUnauthorized, pkgerrors.KindOf(err))
}

func TestCheckUpdatePayloadAcceptsAllowedFields(t *testing.T) {
	err := CheckUpdatePayload(model.Document{
		"firstName": "Jane",
		"lastName":  "Doe",
	}, AllAttributes(), model.PatientSchema.UpdatableFields(), ResourcePatient)
	assert.NoError(t, err)
}
