package model

// FileSchema version 1, metadata for a patient-owned binary document.
// The content itself lives in the blob store under the same id.
var FileSchema = NewSchema(1, append(bookkeepingFields(),
	Field{Name: "patientId", Required: true, Validate: "uuid"},
	Field{Name: "filename", Required: true, Validate: "min=1,max=255"},
	Field{Name: "size", Validate: "gte=0"},
	Field{Name: "contentType", Validate: "max=100"},
))

type UploadFileRequest struct {
	PatientID   string `json:"patientId" validate:"required,uuid"`
	Filename    string `json:"filename" validate:"required,min=1,max=255"`
	ContentType string `json:"contentType" validate:"max=100"`
}

func (r UploadFileRequest) Document(size int64) Document {
	return Document{
		"patientId":   r.PatientID,
		"filename":    r.Filename,
		"size":        size,
		"contentType": r.ContentType,
	}
}

// CanvasSchema version 1, metadata for a standalone raster snapshot.
var CanvasSchema = NewSchema(1, append(bookkeepingFields(),
	Field{Name: "name", Required: true, Validate: "min=1,max=255"},
	Field{Name: "width", Required: true, Validate: "gt=0,lte=16384"},
	Field{Name: "height", Required: true, Validate: "gt=0,lte=16384"},
	Field{Name: "colorSpace", Validate: "oneof=rgb rgba gray"},
	Field{Name: "size", Validate: "gte=0"},
))

type SaveCanvasRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=255"`
	Width      int    `json:"width" validate:"required,gt=0,lte=16384"`
	Height     int    `json:"height" validate:"required,gt=0,lte=16384"`
	ColorSpace string `json:"colorSpace" validate:"omitempty,oneof=rgb rgba gray"`
}

func (r SaveCanvasRequest) Document(size int64) Document {
	return Document{
		"name":       r.Name,
		"width":      r.Width,
		"height":     r.Height,
		"colorSpace": r.ColorSpace,
		"size":       size,
	}
}
