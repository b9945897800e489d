package entity

// Record is one typed row of an upload. Records are only mutated to attach
// the reason they were rejected.
type Record interface {
	Validate() error
	ErrorMessage() string
	SetErrorMessage(msg string)
}

// Row is the embeddable base carrying the rejection message of a record.
type Row struct {
	Message string `json:"error_message,omitempty"`
}

func (r *Row) ErrorMessage() string {
	return r.Message
}

func (r *Row) SetErrorMessage(msg string) {
	r.Message = msg
}
