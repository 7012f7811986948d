package transfer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"schoolportal/internal/model"
	"schoolportal/internal/repo"
	"schoolportal/internal/validate"
)

// ErrNothingToExport is returned when the roster is empty.
var ErrNothingToExport = errors.New("No students to export")

// StudentColumns is the fixed roster header.
var StudentColumns = []string{"id", "firstName", "lastName", "class", "roll", "phone", "email"}

const studentsSheet = "Students"

// StudentsFilename is the download name of org's roster.
func StudentsFilename(org, ext string) string { return org + "_students." + ext }

func studentFields(s model.Student) []string {
	return []string{s.ID.String(), s.FirstName, s.LastName, s.Class, s.Roll, s.Phone, s.Email}
}

// ExportStudentsCSV writes the roster with every field quoted and embedded
// quotes doubled. Rows are separated by "\n" with no trailing newline.
func ExportStudentsCSV(w io.Writer, students []model.Student) error {
	if len(students) == 0 {
		return ErrNothingToExport
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(StudentColumns, ","))
	for _, s := range students {
		bw.WriteByte('\n')
		for i, v := range studentFields(s) {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(`"` + strings.ReplaceAll(v, `"`, `""`) + `"`)
		}
	}
	return bw.Flush()
}

// ExportStudentsXLSX writes the roster as a single-sheet workbook.
func ExportStudentsXLSX(w io.Writer, students []model.Student) error {
	if len(students) == 0 {
		return ErrNothingToExport
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), studentsSheet); err != nil {
		return errors.Wrap(err, "name sheet")
	}
	header := make([]any, len(StudentColumns))
	for i, c := range StudentColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(studentsSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, s := range students {
		fields := studentFields(s)
		row := make([]any, len(fields))
		for j, v := range fields {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(studentsSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write row %d", i+2)
		}
	}
	return f.Write(w)
}

// DecodeStudentsCSV reads a roster with a header row. Columns are matched by
// name, case-insensitively; unknown columns are ignored.
func DecodeStudentsCSV(r io.Reader) ([]model.Student, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, validate.Errorf("invalid CSV: %v", err)
	}
	return studentsFromRows(rows)
}

// DecodeStudentsXLSX reads the first sheet of a workbook the same way.
func DecodeStudentsXLSX(r io.Reader) ([]model.Student, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read workbook")
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, validate.Errorf("invalid workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, validate.Errorf("no worksheet found")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrap(err, "read rows")
	}
	return studentsFromRows(rows)
}

func studentsFromRows(rows [][]string) ([]model.Student, error) {
	if len(rows) == 0 {
		return nil, validate.Errorf("file is empty")
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["firstname"]; !ok {
		return nil, validate.NewError(errors.New("missing firstName column"),
			validate.FieldError{Field: "firstName", Error: "column is required"})
	}
	col := func(row []string, name string) string {
		i, ok := idx[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	students := make([]model.Student, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		students = append(students, model.Student{
			ID:        model.ID(col(row, "id")),
			FirstName: col(row, "firstName"),
			LastName:  col(row, "lastName"),
			Class:     col(row, "class"),
			Roll:      col(row, "roll"),
			Phone:     col(row, "phone"),
			Email:     col(row, "email"),
		})
	}
	return students, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ExportRoster writes r's students as CSV.
func ExportRoster(ctx context.Context, w io.Writer, r *repo.Repository) error {
	students, err := r.Students().All(ctx)
	if err != nil {
		return err
	}
	return ExportStudentsCSV(w, students)
}

// ImportStudents adds every decoded student with a fresh id. Nothing is
// written when any row is invalid.
func ImportStudents(ctx context.Context, r *repo.Repository, students []model.Student) ([]model.Student, error) {
	if len(students) == 0 {
		return nil, validate.Errorf("no students in file")
	}
	return r.Students().AddAll(ctx, students)
}
