package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/pkg/model"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()

	def, ok := r.Lookup(TypeMessageCount)
	require.True(t, ok)
	assert.True(t, def.Implemented)
	require.Len(t, def.Fields, 2)
	assert.Equal(t, "value", def.Fields[0].Name)
	assert.Equal(t, "include_deleted", def.Fields[1].Name)
	assert.Equal(t, "boolean", def.Fields[1].Type)

	_, ok = r.Lookup("no_such_type")
	assert.False(t, ok)
}

func TestRegistryTypesOrder(t *testing.T) {
	r := NewRegistry()

	types := r.Types()
	require.Len(t, types, 4)
	assert.Equal(t, TypeMessageCount, types[0].Type)
	assert.Equal(t, TypeReputation, types[1].Type)
	assert.Equal(t, TypeFirstDocument, types[2].Type)
	assert.Equal(t, TypeTenureDays, types[3].Type)

	// Declared-but-unimplemented types are listed so clients can see
	// them coming, but Validate rejects them.
	assert.False(t, types[3].Implemented)
}

func TestValidate(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name         string
		criteriaType string
		config       interface{}
		wantErr      string
	}{
		{
			name:         "valid message count",
			criteriaType: TypeMessageCount,
			config:       map[string]interface{}{"value": float64(5)},
		},
		{
			name:         "valid reputation allows negative threshold",
			criteriaType: TypeReputation,
			config:       map[string]interface{}{"value": float64(-10)},
		},
		{
			name:         "valid first document with no config",
			criteriaType: TypeFirstDocument,
			config:       nil,
		},
		{
			name:    "empty type",
			wantErr: "criteria type is required",
		},
		{
			name:         "unknown type",
			criteriaType: "no_such_type",
			wantErr:      `unknown criteria type "no_such_type"`,
		},
		{
			name:         "declared but not implemented",
			criteriaType: TypeTenureDays,
			config:       map[string]interface{}{"value": float64(30)},
			wantErr:      `criteria type "tenure_days" is not implemented`,
		},
		{
			name:         "config must be an object",
			criteriaType: TypeMessageCount,
			config:       "five",
			wantErr:      "criteria configuration must be an object",
		},
		{
			name:         "missing required field",
			criteriaType: TypeMessageCount,
			config:       map[string]interface{}{},
			wantErr:      `missing required field "value"`,
		},
		{
			name:         "unknown field",
			criteriaType: TypeFirstDocument,
			config:       map[string]interface{}{"threshold": float64(1)},
			wantErr:      `unknown field "threshold"`,
		},
		{
			name:         "non-numeric value",
			criteriaType: TypeMessageCount,
			config:       map[string]interface{}{"value": "many"},
			wantErr:      `field "value" must be a number`,
		},
		{
			name:         "below minimum",
			criteriaType: TypeMessageCount,
			config:       map[string]interface{}{"value": float64(0)},
			wantErr:      `field "value" must be at least 1`,
		},
		{
			name:         "valid boolean field",
			criteriaType: TypeMessageCount,
			config:       map[string]interface{}{"value": float64(5), "include_deleted": true},
		},
		{
			name:         "non-boolean value for boolean field",
			criteriaType: TypeMessageCount,
			config:       map[string]interface{}{"value": float64(5), "include_deleted": "yes"},
			wantErr:      `field "include_deleted" must be a boolean`,
		},
		{
			name:         "valid enum value",
			criteriaType: TypeReputation,
			config:       map[string]interface{}{"value": float64(10), "comparison": "above"},
		},
		{
			name:         "non-text value for text field",
			criteriaType: TypeReputation,
			config:       map[string]interface{}{"value": float64(10), "comparison": float64(1)},
			wantErr:      `field "comparison" must be text`,
		},
		{
			name:         "text outside the enum",
			criteriaType: TypeReputation,
			config:       map[string]interface{}{"value": float64(10), "comparison": "roughly"},
			wantErr:      `field "comparison" must be one of [at_least above]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate(tt.criteriaType, tt.config)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, model.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAcceptsDecoderNumericShapes(t *testing.T) {
	r := NewRegistry()

	// JSON decodes numbers to float64; YAML to int. Both must validate.
	assert.NoError(t, r.Validate(TypeMessageCount, map[string]interface{}{"value": float64(3)}))
	assert.NoError(t, r.Validate(TypeMessageCount, map[string]interface{}{"value": int(3)}))
	assert.NoError(t, r.Validate(TypeMessageCount, map[string]interface{}{"value": int64(3)}))
}
