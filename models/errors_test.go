package models

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMalformedIndices(t *testing.T) {
	joined := errors.Join(
		&MalformedRecordError{Index: 9, Field: "flowQuantity_delta", Reason: "value is NaN"},
		&MalformedRecordError{Index: 2, Field: "utc_time", Reason: "missing timestamp"},
	)

	tests := []struct {
		name string
		err  error
		want []int
	}{
		{"nil", nil, []int{}},
		{"unrelated", errors.New("boom"), []int{}},
		{"single", &MalformedRecordError{Index: 4}, []int{4}},
		{"joined", joined, []int{2, 9}},
		{"wrapped join", fmt.Errorf("anomaly detection: %w", joined), []int{2, 9}},
		{
			name: "duplicates across layers",
			err:  errors.Join(joined, &MalformedRecordError{Index: 9, Field: "utc_time"}),
			want: []int{2, 9},
		},
		{
			name: "cause chain",
			err:  &MalformedRecordError{Index: 1, Err: &MalformedRecordError{Index: 3}},
			want: []int{1, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MalformedIndices(tt.err))
		})
	}
}

func TestMalformedRecordErrorUnwrap(t *testing.T) {
	_, cause := strconv.ParseFloat("n/a", 64)
	err := &MalformedRecordError{Index: 3, Field: "flowQuantity_delta", Reason: "not a number", Err: cause}

	assert.ErrorIs(t, err, strconv.ErrSyntax)
	assert.Contains(t, err.Error(), "position 3 (flowQuantity_delta): not a number")
}

func TestAnomalyReportFlagged(t *testing.T) {
	r := &AnomalyReport{Rows: []AnomalyRow{
		{Record: Record{FlowDelta: 1}},
		{Record: Record{FlowDelta: 9}, AnomalyFlags: AnomalyFlags{IsAnomaly: true}},
	}}
	flagged := r.Flagged()
	if assert.Len(t, flagged, 1) {
		assert.Equal(t, 9.0, flagged[0].FlowDelta)
	}
}
