package dataset

import "github.com/derickschaefer/spread/internal/model"

// SampleName is the name of the built-in sample dataset.
const SampleName = "sample"

// Sample returns the built-in three-question customer satisfaction survey.
func Sample() *model.Dataset {
	return &model.Dataset{
		Name:  SampleName,
		Title: "Response Distribution",
		Rows: []model.LabeledSeries{
			{
				Label:  "How satisfied were you with the overall service quality?",
				Values: []float64{3, 5, 6, 7, 7, 8, 8, 8, 9, 9},
			},
			{
				Label:  "How likely are you to recommend our service to others?",
				Values: []float64{2, 3, 4, 5, 5, 6, 6, 7, 8, 8},
			},
			{
				Label:  "How would you rate the responsiveness of our support team?",
				Values: []float64{1, 2, 3, 4, 4, 5, 5, 6, 7, 8},
			},
		},
	}
}

// SampleGeometry is the display configuration the sample survey is shown
// with: a wider label column and taller rows than the defaults.
func SampleGeometry() model.GeometryConfig {
	g := model.DefaultGeometry()
	g.Margins.Left = 200
	g.LabelWidth = 160
	g.MinRowHeight = 60
	return g
}
