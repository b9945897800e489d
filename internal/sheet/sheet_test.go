package sheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/entity"
)

var contactColumns = Columns{
	{Field: "name", Header: "Name"},
	{Field: "email", Header: "Email"},
	{Field: "quota", Header: "Quota"},
}

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func newContact() *entity.Contact { return &entity.Contact{} }

func TestReaderDecode(t *testing.T) {
	buf := workbook(t, [][]any{
		{" email ", "NAME", "Ignored", "Quota"},
		{"ada@example.com", "Ada", "x", 12},
		{"", "", "", ""},
		{"bob@example.com", "Bob", "", ""},
	})

	rows, err := Reader[*entity.Contact]{New: newContact}.Decode(buf, contactColumns)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ada", rows[0].Name)
	assert.Equal(t, "ada@example.com", rows[0].Email)
	assert.Equal(t, 12, rows[0].Quota)
	assert.Equal(t, "Bob", rows[1].Name)
	assert.Equal(t, 0, rows[1].Quota)
}

func TestReaderDecodeErrors(t *testing.T) {
	r := Reader[*entity.Contact]{New: newContact}

	_, err := r.Decode(workbook(t, [][]any{{"Name"}}), nil)
	assert.ErrorIs(t, err, common.ErrNoColumns)

	_, err = r.Decode(workbook(t, [][]any{{"Foo", "Bar"}, {"1", "2"}}), contactColumns)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = r.Decode(workbook(t, [][]any{{"Name", "Quota"}, {"Ada", "lots"}}), contactColumns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")

	_, err = r.Decode(bytes.NewReader([]byte("not a workbook")), contactColumns)
	assert.Error(t, err)

	rows, err := r.Decode(workbook(t, [][]any{{"Name", "Email"}}), contactColumns)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriterEncodeRoundTrip(t *testing.T) {
	in := []*entity.Contact{
		{Name: "Ada", Email: "ada@example.com", Quota: 3},
		{Name: "Bob", Email: "bob@", Quota: 0},
	}
	in[1].SetErrorMessage("email must be a valid e-mail address")

	var buf bytes.Buffer
	err := Writer[*entity.Contact]{}.Encode(&buf, in, contactColumns, Column{Header: "Error"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Email", "Quota", "Error"}, rows[0])
	assert.Equal(t, []string{"Ada", "ada@example.com", "3"}, rows[1])
	assert.Equal(t, []string{"Bob", "bob@", "0", "email must be a valid e-mail address"}, rows[2])

	width, err := f.GetColWidth("Sheet1", "D")
	require.NoError(t, err)
	assert.Equal(t, float64(columnWidth), width)
}
