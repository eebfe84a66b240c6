package features

import (
	"fmt"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
	"os"
	"sort"
	"time"
)

// MonthLayout is how benchmark observation months are written.
const MonthLayout = "2006-01"

// Observation is a benchmark rate, in percent, for one month.
type Observation struct {
	Month string  `yaml:"month" validate:"required"`
	Rate  float32 `yaml:"rate"`

	month time.Time
}

// Series is a monthly benchmark rate, such as the 36-month Treasury yield,
// joined onto loans by issue month.
type Series struct {
	// Name becomes the column name of the joined rate.
	Name         string        `yaml:"name" validate:"required"`
	Observations []Observation `yaml:"observations" validate:"required,min=1,dive"`
}

type benchmarkFile struct {
	Series []Series `yaml:"series" validate:"dive"`
}

// LoadBenchmarks reads benchmark series from a YAML file of the form
//
//	series:
//	  - name: treasury_3y
//	    observations:
//	      - {month: 2015-12, rate: 1.31}
func LoadBenchmarks(path string) ([]Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading benchmarks %q: %w", path, err)
	}
	return ParseBenchmarks(data)
}

// ParseBenchmarks decodes and validates benchmark series, sorting each series'
// observations by month.
func ParseBenchmarks(data []byte) ([]Series, error) {
	var file benchmarkFile
	err := yaml.UnmarshalStrict(data, &file)
	if err != nil {
		return nil, fmt.Errorf("decoding benchmarks: %w", err)
	}

	err = validator.New().Struct(file)
	if err != nil {
		return nil, fmt.Errorf("validating benchmarks: %w", err)
	}

	for i := range file.Series {
		err = file.Series[i].prepare()
		if err != nil {
			return nil, err
		}
	}
	return file.Series, nil
}

// NewSeries builds a series from observations given in any order.
func NewSeries(name string, observations ...Observation) (Series, error) {
	s := Series{Name: name, Observations: observations}
	err := s.prepare()
	if err != nil {
		return Series{}, err
	}
	return s, nil
}

func (s *Series) prepare() error {
	for i := range s.Observations {
		month, err := time.Parse(MonthLayout, s.Observations[i].Month)
		if err != nil {
			return fmt.Errorf("series %q: month %q: %w", s.Name, s.Observations[i].Month, err)
		}
		s.Observations[i].month = month
	}
	sort.SliceStable(s.Observations, func(i, j int) bool {
		return s.Observations[i].month.Before(s.Observations[j].month)
	})
	return nil
}

// AsOf returns the latest rate observed in or before month's month. It reports
// false when the series starts after month.
func (s *Series) AsOf(month time.Time) (float32, bool) {
	month = time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	i := sort.Search(len(s.Observations), func(i int) bool {
		return s.Observations[i].month.After(month)
	})
	if i == 0 {
		return 0, false
	}
	return s.Observations[i-1].Rate, true
}
