package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/domain"
)

func TestValidateStruct_ReportIncidentRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.ReportIncidentRequest
		wantErr bool
	}{
		{
			name:    "valid",
			req:     domain.ReportIncidentRequest{Type: "flood", Lat: 48.8, Lng: 2.3, Description: "x"},
			wantErr: false,
		},
		{
			name:    "zero coordinates valid",
			req:     domain.ReportIncidentRequest{Type: "fire", Lat: 0, Lng: 0, Description: "x"},
			wantErr: false,
		},
		{
			name:    "boundary coordinates valid",
			req:     domain.ReportIncidentRequest{Type: "other", Lat: -90, Lng: 180, Description: "x"},
			wantErr: false,
		},
		{
			name:    "unknown type",
			req:     domain.ReportIncidentRequest{Type: "tsunami", Lat: 0, Lng: 0, Description: "x"},
			wantErr: true,
		},
		{
			name:    "missing type",
			req:     domain.ReportIncidentRequest{Lat: 0, Lng: 0, Description: "x"},
			wantErr: true,
		},
		{
			name:    "latitude above range",
			req:     domain.ReportIncidentRequest{Type: "flood", Lat: 90.1, Lng: 0, Description: "x"},
			wantErr: true,
		},
		{
			name:    "longitude below range",
			req:     domain.ReportIncidentRequest{Type: "flood", Lat: 0, Lng: -180.1, Description: "x"},
			wantErr: true,
		},
		{
			name:    "missing description",
			req:     domain.ReportIncidentRequest{Type: "flood", Lat: 0, Lng: 0},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStruct(tc.req)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFieldErrors(t *testing.T) {
	err := ValidateStruct(domain.ReportIncidentRequest{Type: "tsunami", Lat: 95, Lng: 0, Description: "x"})
	require.Error(t, err)

	fields := FieldErrors(err)
	assert.Equal(t, "incident_type", fields["Type"])
	assert.Equal(t, "lat", fields["Lat"])
}

func TestFieldErrors_NonValidatorError(t *testing.T) {
	assert.Nil(t, FieldErrors(assert.AnError))
}
