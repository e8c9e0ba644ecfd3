package attendance

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{
	"Name", "Email", "Track", "Phone", "Event", "Date",
	"Status", "Check In", "Check Out", "Break Total", "Worked Duration", "Notes",
}

// exportRows flattens the roster into one record per (trainee, event) pair.
func exportRows(rows []OverviewUser, date Date) [][]string {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		for _, e := range row.Events {
			rec := []string{
				row.UserName, row.UserEmail, row.Track, row.Phone,
				e.EventTitle, date.String(), string(e.Status),
			}
			var checkIn, checkOut, breakTotal, worked, notes string
			if e.Log != nil {
				checkIn = e.Log.CheckInTime.String()
				if e.Log.CheckedOut() {
					checkOut = e.Log.CheckOutTime.String()
				}
				breakTotal = FormatDuration(e.Log.TotalBreak())
				worked = e.Log.Duration()
				notes = e.Log.Notes
			}
			rec = append(rec, checkIn, checkOut, breakTotal, worked, notes)
			records = append(records, rec)
		}
	}
	return records
}

// ExportCSV renders the roster as CSV. The output is prefixed with a UTF-8 BOM
// and every field is quoted, with embedded quotes escaped by doubling; this is
// what spreadsheet tools expect when importing free-form notes.
func ExportCSV(rows []OverviewUser, date Date) []byte {
	var buf bytes.Buffer
	buf.WriteString("\xEF\xBB\xBF") // UTF-8 BOM

	writeRecord := func(rec []string) {
		for i, field := range rec {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
			buf.WriteByte('"')
		}
		buf.WriteString("\r\n")
	}

	writeRecord(exportHeader)
	for _, rec := range exportRows(rows, date) {
		writeRecord(rec)
	}
	return buf.Bytes()
}

// ExportXLSX renders the roster as an Excel workbook.
func ExportXLSX(rows []OverviewUser, date Date) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Attendance " + date.String()
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(idx)
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return nil, errors.Wrap(err, "dropping default sheet")
	}

	writeRow := func(rowNum int, rec []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(rec))
		for i, v := range rec {
			vals[i] = v
		}
		return f.SetSheetRow(sheet, cell, &vals)
	}

	if err = writeRow(1, exportHeader); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	for i, rec := range exportRows(rows, date) {
		if err = writeRow(i+2, rec); err != nil {
			return nil, errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	var buf bytes.Buffer
	if err = f.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}
