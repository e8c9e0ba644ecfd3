package attendance

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

func checkTextEqual(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	t.Errorf("output mismatch:\n%s", diff)
}

func TestExportCSV(t *testing.T) {
	day := mustDate(t, "2024-03-15")

	log := &Log{
		CheckInTime: mustClock(t, "09:00:00", day),
		Notes:       `late, said "traffic"`,
	}
	log.startBreak(mustClock(t, "12:00:00", day))
	log.endBreak(mustClock(t, "12:30:00", day))
	if err := log.checkOut(mustClock(t, "17:00:00", day)); err != nil {
		t.Fatalf("checkOut(): %v", err)
	}

	rows := []OverviewUser{
		{
			UserID: "u1", UserName: "Alice Mwamba", UserEmail: "alice@test.cd", Track: "Backend", Phone: "+243810000001",
			Events: []OverviewEntry{{EventID: "evt1", EventTitle: "Bootcamp Day", Log: log, Status: log.Status()}},
		},
		{
			UserID: "u2", UserName: "Bob Ilunga", UserEmail: "bob@test.cd", Track: "Frontend",
			Events: []OverviewEntry{{EventID: "evt1", EventTitle: "Bootcamp Day", Status: StatusAbsent}},
		},
	}

	got := ExportCSV(rows, day)

	if !bytes.HasPrefix(got, []byte("\xEF\xBB\xBF")) {
		t.Fatal("ExportCSV() output missing UTF-8 BOM")
	}

	want := strings.Join([]string{
		`"Name","Email","Track","Phone","Event","Date","Status","Check In","Check Out","Break Total","Worked Duration","Notes"`,
		`"Alice Mwamba","alice@test.cd","Backend","+243810000001","Bootcamp Day","2024-03-15","complete","09:00:00","17:00:00","00:30:00","07:30:00","late, said ""traffic"""`,
		`"Bob Ilunga","bob@test.cd","Frontend","","Bootcamp Day","2024-03-15","absent","","","","",""`,
		"",
	}, "\r\n")
	checkTextEqual(t, string(bytes.TrimPrefix(got, []byte("\xEF\xBB\xBF"))), want)
}

func TestExportXLSX(t *testing.T) {
	day := mustDate(t, "2024-03-15")
	rows := []OverviewUser{
		{
			UserID: "u1", UserName: "Alice Mwamba", UserEmail: "alice@test.cd", Track: "Backend",
			Events: []OverviewEntry{{EventID: "evt1", EventTitle: "Bootcamp Day", Status: StatusAbsent}},
		},
	}

	data, err := ExportXLSX(rows, day)
	if err != nil {
		t.Fatalf("ExportXLSX(): %v", err)
	}
	// an xlsx file is a zip archive
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("ExportXLSX() output is not a zip archive")
	}
}
