package catalog_test

import (
	"fmt"
	"testing"

	"github.com/civica/civica/internal/catalog"
	"github.com/stretchr/testify/assert"
)

func TestParseMeetingType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label    string
		expected catalog.MeetingType
	}{
		{"City Council Regular Meeting", catalog.RegularCouncil},
		{"City Council Work Session", catalog.WorkSession},
		{"City Council Special Meeting", catalog.SpecialCouncil},
		{"Planning & Zoning Commission Meeting", catalog.PlanningZoning},
		{"Planning and Zoning Commission", catalog.PlanningZoning},
		{"Urban Renewal Authority Board Meeting", catalog.UrbanRenewal},
		{"Historic Preservation Commission", catalog.Other},
		{"", catalog.Other},
	}

	for _, test := range tests {
		t.Run(test.label, func(t *testing.T) {
			assert.Equal(t, test.expected, catalog.ParseMeetingType(test.label))
		})
	}
}

func TestMeetingTypeFromToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token     string
		expected  catalog.MeetingType
		expectErr bool
	}{
		{"regular-council", catalog.RegularCouncil, false},
		{" Work-Session ", catalog.WorkSession, false},
		{"urban-renewal", catalog.UrbanRenewal, false},
		{"City Council Special Meeting", catalog.SpecialCouncil, false},
		{"other", catalog.Other, false},
		{"bogus", catalog.Other, true},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("token=%q", test.token), func(t *testing.T) {
			parsed, err := catalog.MeetingTypeFromToken(test.token)
			if test.expectErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, test.expected, parsed)
		})
	}
}

func TestMeetingTypeString_RoundTripsThroughToken(t *testing.T) {
	t.Parallel()

	for _, meetingType := range []catalog.MeetingType{
		catalog.RegularCouncil, catalog.WorkSession, catalog.SpecialCouncil,
		catalog.PlanningZoning, catalog.UrbanRenewal, catalog.Other,
	} {
		parsed, err := catalog.MeetingTypeFromToken(meetingType.String())
		assert.NoError(t, err)
		assert.Equal(t, meetingType, parsed)
	}
}
