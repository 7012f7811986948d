// Package transfer moves collections in and out of files: the class and
// schedule bundle as JSON, and the student roster as CSV or XLSX.
package transfer

import (
	"context"
	"encoding/json"
	"io"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"schoolportal/internal/model"
	"schoolportal/internal/repo"
	"schoolportal/internal/validate"
)

// Bundle is the class and schedule export. HasClasses and HasSchedule record
// which parts an imported document carried.
type Bundle struct {
	Classes  []model.Class        `json:"classes"`
	Schedule []model.ScheduleSlot `json:"schedule"`

	HasClasses  bool `json:"-"`
	HasSchedule bool `json:"-"`
}

// ClassesFilename is the download name of org's bundle.
func ClassesFilename(org string) string { return org + "_classes.json" }

// ExportClasses writes {classes, schedule} as JSON indented by two spaces.
func ExportClasses(w io.Writer, classes []model.Class, schedule []model.ScheduleSlot) error {
	if classes == nil {
		classes = []model.Class{}
	}
	if schedule == nil {
		schedule = []model.ScheduleSlot{}
	}
	out, err := sonic.ConfigStd.MarshalIndent(Bundle{Classes: classes, Schedule: schedule}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode classes")
	}
	_, err = w.Write(out)
	return err
}

// DecodeClasses reads a bundle. Missing or null parts are left out and
// unknown fields are ignored; anything that is not a JSON object of that
// shape is a validation error.
func DecodeClasses(r io.Reader) (Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Bundle{}, errors.Wrap(err, "read classes")
	}
	var raw struct {
		Classes  json.RawMessage `json:"classes"`
		Schedule json.RawMessage `json:"schedule"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &raw); err != nil {
		return Bundle{}, validate.Errorf("Invalid JSON")
	}
	var b Bundle
	if present(raw.Classes) {
		if err := sonic.ConfigStd.Unmarshal(raw.Classes, &b.Classes); err != nil {
			return Bundle{}, validate.Errorf("Invalid JSON")
		}
		b.HasClasses = true
	}
	if present(raw.Schedule) {
		if err := sonic.ConfigStd.Unmarshal(raw.Schedule, &b.Schedule); err != nil {
			return Bundle{}, validate.Errorf("Invalid JSON")
		}
		b.HasSchedule = true
	}
	return b, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// ApplyClasses overwrites the collections the bundle carries and leaves the
// others alone.
func ApplyClasses(ctx context.Context, r *repo.Repository, b Bundle) error {
	if b.HasClasses {
		if err := r.Classes().Save(ctx, b.Classes); err != nil {
			return err
		}
	}
	if b.HasSchedule {
		if err := r.Schedule().Save(ctx, b.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// ExportRepository writes r's classes and schedule.
func ExportRepository(ctx context.Context, w io.Writer, r *repo.Repository) error {
	classes, err := r.Classes().All(ctx)
	if err != nil {
		return err
	}
	schedule, err := r.Schedule().All(ctx)
	if err != nil {
		return err
	}
	return ExportClasses(w, classes, schedule)
}
