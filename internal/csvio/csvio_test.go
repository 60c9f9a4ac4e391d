package csvio

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

func TestPropertyReaderStreamsRows(t *testing.T) {
	csvText := "street,city,state,zip,price,price_num,beds,baths,sqft,price_per_sqft,full_address\n" +
		"1 Main St,Austin,TX,78701,\"$500,000\",500000,4,2.5,2200,227.27,1 Main St Austin TX 78701\n"

	r, err := NewPropertyReader(strings.NewReader(csvText))
	require.NoError(t, err)

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "Austin", row.City)
	assert.Equal(t, 500000.0, row.PriceNum)
	assert.Equal(t, 4, row.Beds)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestInputRowToPropertyNormalizesAddress(t *testing.T) {
	row := InputRow{FullAddress: "1 main st.  "}
	p := row.ToProperty()
	assert.Equal(t, "1 MAIN ST", p.FullAddress)
}

func TestRankedWriterProducesHeaderAndRow(t *testing.T) {
	var buf bytes.Buffer
	w := NewRankedWriter(&buf)

	p := &models.Property{
		FullAddress: "1 MAIN ST", Tier: models.TierUnicorn, TotalScore: 555,
		KillSwitchVerdict: models.VerdictPass, Price: 500000, Beds: 4, Baths: 2.5,
	}
	require.NoError(t, w.WriteRow(RankedRecordFromProperty(p)))

	out := buf.String()
	assert.Contains(t, out, "full_address")
	assert.Contains(t, out, "1 MAIN ST")
	assert.Contains(t, out, "UNICORN")
}
