package transfer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"schoolportal/internal/kv"
	"schoolportal/internal/model"
	"schoolportal/internal/repo"
	"schoolportal/internal/validate"
)

func newRepo(t *testing.T) *repo.Repository {
	t.Helper()
	r, err := repo.New(kv.NewMemory(), repo.Scope{Org: "Acme"})
	require.NoError(t, err)
	return r
}

var roster = []model.Student{
	{ID: "s1", FirstName: "Esi", LastName: "Mensah", Class: "JHS1", Roll: "1", Phone: "024", Email: "esi@x.io"},
	{ID: "s2", FirstName: `Kwame "KB"`, LastName: "Boateng, Jr", Class: "JHS2"},
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "Acme_classes.json", ClassesFilename("Acme"))
	assert.Equal(t, "Acme_students.csv", StudentsFilename("Acme", "csv"))
	assert.Equal(t, "Acme_students.xlsx", StudentsFilename("Acme", "xlsx"))
}

func TestExportClasses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportClasses(&buf, nil, nil))
	assert.JSONEq(t, `{"classes":[],"schedule":[]}`, buf.String())
	assert.Contains(t, buf.String(), "\n  \"classes\": []")

	buf.Reset()
	classes := []model.Class{{ID: "c1", Name: "JHS1", Students: []model.ID{"s1"}}}
	schedule := []model.ScheduleSlot{{ID: "t1", Day: 1, Time: "08:00", ClassName: "JHS1"}}
	require.NoError(t, ExportClasses(&buf, classes, schedule))

	b, err := DecodeClasses(&buf)
	require.NoError(t, err)
	assert.True(t, b.HasClasses)
	assert.True(t, b.HasSchedule)
	assert.Equal(t, classes, b.Classes)
	assert.Equal(t, schedule, b.Schedule)
}

func TestDecodeClasses(t *testing.T) {
	tests := []struct {
		name         string
		in           string
		wantErr      string
		wantClasses  bool
		wantSchedule bool
	}{
		{name: "both", in: `{"classes":[],"schedule":[]}`, wantClasses: true, wantSchedule: true},
		{name: "classes only", in: `{"classes":[{"id":"c1","name":"A"}],"extra":1}`, wantClasses: true},
		{name: "null schedule", in: `{"classes":[],"schedule":null}`, wantClasses: true},
		{name: "empty object", in: `{}`},
		{
			name:         "numeric ids",
			in:           `{"classes":[{"id":1700000000000,"name":"JHS1","students":[1700000000001]}],"schedule":[{"id":1700000000002,"day":1,"time":"08:00","className":"JHS1"}]}`,
			wantClasses:  true,
			wantSchedule: true,
		},
		{name: "not json", in: `{classes:`, wantErr: "Invalid JSON"},
		{name: "array", in: `[]`, wantErr: "Invalid JSON"},
		{name: "wrong part type", in: `{"classes":"JHS1"}`, wantErr: "Invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := DecodeClasses(strings.NewReader(tt.in))
			if tt.wantErr != "" {
				var verr *validate.Error
				require.ErrorAs(t, err, &verr)
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantClasses, b.HasClasses)
			assert.Equal(t, tt.wantSchedule, b.HasSchedule)
		})
	}
}

func TestDecodeClassesNumericIDs(t *testing.T) {
	in := `{"classes":[{"id":1700000000000,"name":"JHS1","students":[1700000000001]}]}`
	b, err := DecodeClasses(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, b.Classes, 1)
	assert.Equal(t, model.ID("1700000000000"), b.Classes[0].ID)
	assert.Equal(t, []model.ID{"1700000000001"}, b.Classes[0].Students)

	var buf bytes.Buffer
	require.NoError(t, ExportClasses(&buf, b.Classes, nil))
	assert.Contains(t, buf.String(), `"id": 1700000000000`)
}

func TestApplyClasses(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	_, err := r.AddScheduleSlot(ctx, model.ScheduleSlot{Day: 2, Time: "10:00", ClassName: "JHS2"})
	require.NoError(t, err)

	b, err := DecodeClasses(strings.NewReader(`{"classes":[{"id":"c9","name":"JHS1","students":[]}]}`))
	require.NoError(t, err)
	require.NoError(t, ApplyClasses(ctx, r, b))

	classes, err := r.Classes().All(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, model.ID("c9"), classes[0].ID)

	schedule, err := r.Schedule().All(ctx)
	require.NoError(t, err)
	assert.Len(t, schedule, 1, "schedule left alone")

	var buf bytes.Buffer
	require.NoError(t, ExportRepository(ctx, &buf, r))
	assert.Contains(t, buf.String(), `"id": "c9"`)
	assert.Contains(t, buf.String(), `"className": "JHS2"`)
}

func TestExportStudentsCSV(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ErrNothingToExport, ExportStudentsCSV(&buf, nil))
	assert.Equal(t, "No students to export", ErrNothingToExport.Error())

	require.NoError(t, ExportStudentsCSV(&buf, roster))
	want := "id,firstName,lastName,class,roll,phone,email\n" +
		`"s1","Esi","Mensah","JHS1","1","024","esi@x.io"` + "\n" +
		`"s2","Kwame ""KB""","Boateng, Jr","JHS2","","",""`
	assert.Equal(t, want, buf.String())

	got, err := DecodeStudentsCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, roster, got)
}

func TestExportStudentsXLSX(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ErrNothingToExport, ExportStudentsXLSX(&buf, nil))

	require.NoError(t, ExportStudentsXLSX(&buf, roster))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "Students", f.GetSheetName(0))
	v, err := f.GetCellValue("Students", "B3")
	require.NoError(t, err)
	assert.Equal(t, `Kwame "KB"`, v)
	require.NoError(t, f.Close())

	got, err := DecodeStudentsXLSX(&buf)
	require.NoError(t, err)
	assert.Equal(t, roster, got)
}

func TestDecodeStudentsCSV(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []model.Student
		wantErr bool
	}{
		{
			name: "columns by name",
			in:   "Class,FIRSTNAME,notes\nJHS1, Ama ,x\n,,\n",
			want: []model.Student{{FirstName: "Ama", Class: "JHS1"}},
		},
		{name: "no firstName column", in: "name,class\nAma,JHS1\n", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "broken quotes", in: "firstName\n\"Ama\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeStudentsCSV(strings.NewReader(tt.in))
			if tt.wantErr {
				var verr *validate.Error
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImportStudents(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	_, err := ImportStudents(ctx, r, nil)
	var verr *validate.Error
	assert.ErrorAs(t, err, &verr)

	_, err = ImportStudents(ctx, r, []model.Student{{FirstName: "Ama"}, {FirstName: " "}})
	assert.ErrorAs(t, err, &verr)
	all, err := r.Students().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	added, err := ImportStudents(ctx, r, roster)
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.NotEqual(t, model.ID("s1"), added[0].ID)
	assert.False(t, added[0].CreatedAt.IsZero())

	var buf bytes.Buffer
	require.NoError(t, ExportRoster(ctx, &buf, r))
	assert.True(t, strings.HasPrefix(buf.String(), "id,firstName,lastName,class,roll,phone,email\n\""+added[0].ID.String()+"\""))
}
