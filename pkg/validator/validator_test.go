package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type rangePayload struct {
	TeamID     string `json:"team_id" validate:"required,uuid4"`
	RangeStart int64  `json:"range_start" validate:"min=0"`
	RangeEnd   int64  `json:"range_end" validate:"required,min=1"`
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&rangePayload{TeamID: "not-a-uuid", RangeEnd: 0})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)

	fields := make(map[string]string, len(failures))
	for _, failure := range failures {
		fields[failure.Field] = failure.Tag
	}
	require.Equal(t, "uuid4", fields["team_id"])
	require.Equal(t, "required", fields["range_end"])
}

func TestValidateStructAcceptsValidPayload(t *testing.T) {
	payload := &rangePayload{
		TeamID:     "0d1b8a1e-34a1-4c18-8f6a-0f0f3f7e9abc",
		RangeStart: 0,
		RangeEnd:   4,
	}
	require.NoError(t, ValidateStruct(payload))
}

func TestValidationErrorsString(t *testing.T) {
	failures := ValidationErrors{
		{Field: "range_end", Tag: "min", Param: "1"},
	}
	require.Equal(t, "range_end failed on min=1", failures.Error())
}
