package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		in         sample
		wantFields []FieldError
	}{
		{name: "valid", in: sample{Name: "Esi", Email: "esi@x.io"}},
		{
			name:       "blank name",
			in:         sample{Name: "   ", Email: "esi@x.io"},
			wantFields: []FieldError{{Field: "name", Error: "this field is required"}},
		},
		{
			name:       "missing email",
			in:         sample{Name: "Esi"},
			wantFields: []FieldError{{Field: "email", Error: "this field is required"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantFields, verr.Fields)
		})
	}
}

func TestError(t *testing.T) {
	assert.Equal(t, "Invalid JSON", Errorf("Invalid JSON").Error())
	assert.Equal(t, "name: required", (&Error{Fields: []FieldError{{Field: "name", Error: "required"}}}).Error())
	assert.Equal(t, "invalid input", (&Error{}).Error())
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Acme School", CleanString("  Acme School \n"))
	assert.Equal(t, "jo@x.com", CleanString(" JO@x.com ", true))
	assert.Equal(t, "JO@x.com", CleanString("JO@x.com", false))
}
