package lexicon

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// UnknownReport lists every ambiguous uncurated boundary. Curators resolve an
// entry by adding the word to the leading or trailing override table.
type UnknownReport struct {
	Leading  []Unknown `yaml:"leading"`
	Trailing []Unknown `yaml:"trailing"`
}

// Report builds the report for ix.
func (ix *Index) Report() UnknownReport {
	return UnknownReport{
		Leading:  ix.Unknown(Start),
		Trailing: ix.Unknown(End),
	}
}

// WriteReport encodes the unknown-tone report of ix as YAML.
func (ix *Index) WriteReport(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ix.Report()); err != nil {
		return fmt.Errorf("lexicon: encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("lexicon: encode report: %w", err)
	}
	return nil
}

// WriteReportFile writes the unknown-tone report to path, replacing any
// existing file.
func (ix *Index) WriteReportFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("lexicon: create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("lexicon: close report: %w", cerr)
		}
	}()
	return ix.WriteReport(f)
}
