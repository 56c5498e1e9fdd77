package IO

import (
	"encoding/csv"
	"os"
	"strconv"
)

// MetricLog appends one CSV row per epoch. The header is fixed at creation.
type MetricLog struct {
	f      *os.File
	w      *csv.Writer
	fields []string
}

func NewMetricLog(path string, fields ...string) (*MetricLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(fields); err != nil {
		f.Close()
		return nil, err
	}
	return &MetricLog{f: f, w: w, fields: fields}, nil
}

// Log writes values in header order. Missing fields are left empty.
func (l *MetricLog) Log(values map[string]float64) error {
	row := make([]string, len(l.fields))
	for i, name := range l.fields {
		if v, ok := values[name]; ok {
			row[i] = strconv.FormatFloat(v, 'g', 6, 64)
		}
	}
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *MetricLog) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
