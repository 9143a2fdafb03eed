package models

import "context"

// RecordSource yields an already-cleaned, time-ordered record sequence
type RecordSource interface {
	Records(ctx context.Context) ([]Record, error)
}

// ResultSink consumes the output of a run
type ResultSink interface {
	Write(ctx context.Context, result *AnalysisResult) error
}
