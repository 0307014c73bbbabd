// Package analyze inspects carrier images for statistical traces of low-bit
// embedding. It is the detector's view of what the codec produces: the same
// numbers an adversary would compute, exposed so users can check whether
// entropy filling actually flattened them.
package analyze

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/hashicorp/go-multierror"
	pixelcargo "github.com/pixelcargo/pixelcargo"
	"github.com/pixelcargo/pixelcargo/imageio"
)

// Report holds the per-image statistics. Field tags drive the CSV export.
type Report struct {
	File       string  `csv:"file"`
	Width      int     `csv:"width"`
	Height     int     `csv:"height"`
	Channels   int     `csv:"channels"`
	LSBEntropy float64 `csv:"lsb_entropy"`
	LSBOneRate float64 `csv:"lsb_one_rate"`
	ChiSquare  float64 `csv:"chi_square"`
	Suspicious bool    `csv:"suspicious"`
}

// suspicionChiThreshold marks the even/odd chi-square below which sample
// values are implausibly balanced for photographic data.
const suspicionChiThreshold = 0.5

// Raster computes LSB statistics over every sample of a raster.
func Raster(raster *pixelcargo.RasterBuffer) Report {
	report := Report{
		Width:    raster.Width,
		Height:   raster.Height,
		Channels: raster.Channels,
	}

	total := raster.SampleCount()
	if total == 0 {
		return report
	}

	ones := 0
	for i := 0; i < total; i++ {
		if raster.Sample(i)&1 == 1 {
			ones++
		}
	}
	zeros := total - ones

	report.LSBOneRate = float64(ones) / float64(total)

	// Shannon entropy of the LSB plane, in bits per bit.
	p1 := report.LSBOneRate
	p0 := 1 - p1
	if p0 > 0 && p1 > 0 {
		report.LSBEntropy = -p0*math.Log2(p0) - p1*math.Log2(p1)
	}

	// Even/odd chi-square against the uniform expectation. Values far below
	// 1 mean the LSBs are suspiciously close to a coin flip.
	expected := float64(total) / 2
	report.ChiSquare = math.Pow(float64(zeros)-expected, 2)/expected +
		math.Pow(float64(ones)-expected, 2)/expected
	report.Suspicious = report.ChiSquare < suspicionChiThreshold

	return report
}

// File reads one image and analyzes it.
func File(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, pixelcargo.ErrIOFailed.Wrap(err)
	}
	defer f.Close()

	raster, err := imageio.ReadImage(f)
	if err != nil {
		return Report{}, err
	}

	report := Raster(raster)
	report.File = path
	return report, nil
}

// Files analyzes a batch of images. Failures do not stop the batch; the
// returned error aggregates everything that went wrong alongside the reports
// that succeeded.
func Files(paths []string) ([]Report, error) {
	var reports []Report
	var errs *multierror.Error

	for _, path := range paths {
		report, err := File(path)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, errs.ErrorOrNil()
}

// WriteCSV renders reports as CSV with a header row.
func WriteCSV(w io.Writer, reports []Report) error {
	return gocsv.Marshal(&reports, w)
}
