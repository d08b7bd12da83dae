package pipeline_test

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/pipeline"
)

func benchRows(n, samples int) []model.LabeledSeries {
	rows := make([]model.LabeledSeries, n)
	for i := range rows {
		vals := make([]float64, samples)
		for j := range vals {
			vals[j] = float64((i*7+j)%10) + 0.5
		}
		rows[i] = model.LabeledSeries{Label: fmt.Sprintf("row %d", i), Values: vals}
	}
	return rows
}

func BenchmarkWriteRows(b *testing.B) {
	rows := benchRows(200, 500)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := pipeline.WriteRows(io.Discard, rows); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReadRows(b *testing.B) {
	var buf bytes.Buffer
	if err := pipeline.WriteRows(&buf, benchRows(200, 500)); err != nil {
		b.Fatalf("setup: %v", err)
	}
	data := buf.Bytes()
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pipeline.ReadRows(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}
