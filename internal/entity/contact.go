package entity

import (
	"github.com/joseph-ayodele/sheetload/constants"
	"github.com/joseph-ayodele/sheetload/internal/common"
)

// Contact is one row of a contacts import.
type Contact struct {
	Row
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Segment string `json:"segment"`
	Quota   int    `json:"quota"`
}

var contactSchema = common.MustCompileSchema("contact.json", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name":    map[string]any{"type": "string", "minLength": 1, "maxLength": 120},
		"email":   map[string]any{"type": "string", "format": "email"},
		"phone":   map[string]any{"type": "string", "pattern": `^(\+?[0-9 ()\-]{6,20})?$`},
		"company": map[string]any{"type": "string", "maxLength": 200},
		"segment": map[string]any{"type": "string"},
		"quota":   map[string]any{"type": "integer", "minimum": 0, "maximum": 100000},
	},
	"required": []string{"name", "email"},
})

func (c *Contact) Validate() error {
	v := common.NewValidator().
		Field("name", c.Name, common.Required).
		Field("email", c.Email, common.Required, common.Email)
	if c.Segment != "" {
		if _, ok := constants.Canonicalize(c.Segment); !ok {
			v.Field("segment", c.Segment, func(field string, value interface{}) *common.ValidationError {
				return &common.ValidationError{Field: field, Value: value, Message: "is not a known segment"}
			})
		}
	}
	if err := v.Error(); err != nil {
		return err
	}
	return common.ValidateAgainstSchema(contactSchema, c)
}
