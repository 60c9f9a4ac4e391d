// Package csvio implements the properties-in / ranked-CSV-out streaming
// codec: one row materialized at a time in either direction, via
// csvutil wrapping encoding/csv, so a multi-thousand-row batch never
// needs the whole file in memory at once.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

// InputRow is one line of the properties CSV, matching the column set
// named in the specification's external interfaces section.
type InputRow struct {
	Street       string  `csv:"street"`
	City         string  `csv:"city"`
	State        string  `csv:"state"`
	Zip          string  `csv:"zip"`
	Price        string  `csv:"price"`
	PriceNum     float64 `csv:"price_num"`
	Beds         int     `csv:"beds"`
	Baths        float64 `csv:"baths"`
	Sqft         int     `csv:"sqft"`
	PricePerSqft float64 `csv:"price_per_sqft"`
	FullAddress  string  `csv:"full_address"`
}

// ToProperty seeds a new Property record from an input row's listing
// fields; everything else is populated by later extraction phases.
func (r InputRow) ToProperty() *models.Property {
	addr := r.FullAddress
	if addr == "" {
		addr = fmt.Sprintf("%s, %s, %s %s", r.Street, r.City, r.State, r.Zip)
	}
	return &models.Property{
		FullAddress:  models.NormalizeAddress(addr),
		Street:       r.Street,
		City:         r.City,
		State:        r.State,
		Zip:          r.Zip,
		Price:        r.PriceNum,
		Beds:         r.Beds,
		Baths:        r.Baths,
		Sqft:         r.Sqft,
		PricePerSqft: r.PricePerSqft,
	}
}

// PropertyReader streams InputRows one at a time from a properties CSV.
type PropertyReader struct {
	dec *csvutil.Decoder
}

// NewPropertyReader wraps r with a header-driven csvutil.Decoder.
func NewPropertyReader(r io.Reader) (*PropertyReader, error) {
	csvReader := csv.NewReader(r)
	dec, err := csvutil.NewDecoder(csvReader)
	if err != nil {
		return nil, fmt.Errorf("new csv decoder: %w", err)
	}
	return &PropertyReader{dec: dec}, nil
}

// Next decodes the next row, returning io.EOF once the file is
// exhausted.
func (pr *PropertyReader) Next() (InputRow, error) {
	var row InputRow
	if err := pr.dec.Decode(&row); err != nil {
		return InputRow{}, err
	}
	return row, nil
}

// RankedRecord is one output row of the ranked CSV: every input column
// except price_num (the price column carries the numeric price) plus
// the derived scoring fields. Rows are written in the order the caller
// supplies them; RankedWriter does not sort.
type RankedRecord struct {
	FullAddress        string  `csv:"full_address"`
	Street             string  `csv:"street"`
	City               string  `csv:"city"`
	State              string  `csv:"state"`
	Zip                string  `csv:"zip"`
	Price              float64 `csv:"price"`
	Beds               int     `csv:"beds"`
	Baths              float64 `csv:"baths"`
	Sqft               int     `csv:"sqft"`
	PricePerSqft       float64 `csv:"price_per_sqft"`
	KillSwitchVerdict  string  `csv:"kill_switch_verdict"`
	KillSwitchSeverity float64 `csv:"kill_switch_severity"`
	TotalScore         float64 `csv:"total_score"`
	SectionA           float64 `csv:"score_section_a"`
	SectionB           float64 `csv:"score_section_b"`
	SectionC           float64 `csv:"score_section_c"`
	Tier               string  `csv:"tier"`
	DefaultsUsed       int     `csv:"defaults_used"`
	DataQuality        float64 `csv:"data_quality"`
}

// RankedRecordFromProperty projects the fields RankedRecord needs out of
// a fully-scored Property.
func RankedRecordFromProperty(p *models.Property) RankedRecord {
	return RankedRecord{
		FullAddress:        p.FullAddress,
		Street:             p.Street,
		City:               p.City,
		State:              p.State,
		Zip:                p.Zip,
		Price:              p.Price,
		Beds:               p.Beds,
		Baths:              p.Baths,
		Sqft:               p.Sqft,
		PricePerSqft:       p.PricePerSqft,
		KillSwitchVerdict:  string(p.KillSwitchVerdict),
		KillSwitchSeverity: p.KillSwitchSeverity,
		TotalScore:         p.TotalScore,
		SectionA:           p.ScoreSectionA,
		SectionB:           p.ScoreSectionB,
		SectionC:           p.ScoreSectionC,
		Tier:               string(p.Tier),
		DefaultsUsed:       p.DefaultsUsed,
		DataQuality:        p.DataQuality,
	}
}

// RankedWriter streams RankedRecords to a ranked-CSV output one row at a
// time, writing the header on the first call.
type RankedWriter struct {
	csvW *csv.Writer
	enc  *csvutil.Encoder
}

// NewRankedWriter wraps w with a csvutil.Encoder.
func NewRankedWriter(w io.Writer) *RankedWriter {
	csvW := csv.NewWriter(w)
	return &RankedWriter{csvW: csvW, enc: csvutil.NewEncoder(csvW)}
}

// WriteRow encodes one ranked record and flushes immediately, so the
// orchestrator can call this once per property as each finishes rather
// than buffering the whole ranked list, and a crash mid-batch still
// leaves every already-finished property's row on disk.
func (rw *RankedWriter) WriteRow(rec RankedRecord) error {
	if err := rw.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode ranked row: %w", err)
	}
	rw.csvW.Flush()
	return rw.csvW.Error()
}
