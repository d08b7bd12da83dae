package chart_test

import (
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/derickschaefer/spread/internal/chart"
	"github.com/derickschaefer/spread/internal/model"
)

// syntheticRows builds n rows of 1..10 ratings with a fixed seed so runs
// are comparable.
func syntheticRows(n, samples int) []model.LabeledSeries {
	rng := rand.New(rand.NewSource(42))
	rows := make([]model.LabeledSeries, n)
	for i := range rows {
		vals := make([]float64, samples)
		for j := range vals {
			vals[j] = float64(1 + rng.Intn(10))
		}
		rows[i] = model.LabeledSeries{
			Label:  fmt.Sprintf("Question %d: how would you rate this part of the service overall?", i+1),
			Values: vals,
		}
	}
	return rows
}

func BenchmarkLayout(b *testing.B) {
	for _, size := range []struct{ rows, samples int }{
		{3, 10},
		{50, 200},
		{500, 1000},
	} {
		rows := syntheticRows(size.rows, size.samples)
		cfg := model.DefaultGeometry()
		b.Run(fmt.Sprintf("rows=%d/samples=%d", size.rows, size.samples), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := chart.Layout(rows, cfg); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkASCII(b *testing.B) {
	l, err := chart.Layout(syntheticRows(50, 200), model.DefaultGeometry())
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := chart.ASCII(io.Discard, l, chart.ASCIIOptions{Width: 120}); err != nil {
			b.Fatal(err)
		}
	}
}
