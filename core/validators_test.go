package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type form struct {
		FullName string `json:"full_name" validate:"required,person_name"`
		Rule     string `json:"rule" validate:"omitempty,oneof=week overall both"`
	}

	tests := []struct {
		name    string
		data    form
		wantErr map[string]string
	}{
		{name: "valid", data: form{FullName: "HARDIK D. SHAH", Rule: "both"}},
		{name: "accented", data: form{FullName: "Zoë O'Neil-Patel"}},
		{
			name:    "missing",
			data:    form{},
			wantErr: map[string]string{"full_name": "this field is required"},
		},
		{
			name: "invalid",
			data: form{FullName: "HDS 2", Rule: "monthly"},
			wantErr: map[string]string{
				"full_name": "only letters, spaces, dots and hyphens are allowed",
				"rule":      "rule must be one of [week overall both]",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Struct(tc.data)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			got := make(map[string]string, len(vErrs))
			for _, e := range vErrs {
				got[e.Field()] = e.Translate(translator)
			}
			assert.Equal(t, tc.wantErr, got)
		})
	}
}
