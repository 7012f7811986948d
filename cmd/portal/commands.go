package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"schoolportal/internal/attendance"
	"schoolportal/internal/auth"
	"schoolportal/internal/model"
	"schoolportal/internal/repo"
	"schoolportal/internal/session"
	"schoolportal/internal/transfer"
	"schoolportal/internal/view"
)

func (cli *commandLine) register(org, name, email, pwd, role string) error {
	acc, err := auth.NewRegistry(cli.store, repo.OrganizationsUsersKey).Register(context.Background(), auth.Registration{
		Org:      org,
		Name:     name,
		Email:    email,
		Password: pwd,
		Role:     model.Role(role),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Registered %s (%s) in %s. You can now log in.\n", acc.Email, acc.Role, acc.Org)
	return nil
}

func (cli *commandLine) login(email, pwd string, teacher bool) error {
	ctx := context.Background()
	slot := session.SiteSlot()
	if teacher {
		org, err := repo.ActiveOrg(ctx, cli.store)
		if err != nil {
			return err
		}
		if org == "" {
			return repo.ErrNoActiveOrg
		}
		slot = session.TeacherSlot(org)
	}
	mgr := session.NewManager(cli.store, slot)
	sess, err := mgr.Login(ctx, email, pwd)
	if err != nil {
		return err
	}
	target, err := session.Home(sess.Role)
	if err != nil {
		_ = mgr.Logout(ctx)
		return err
	}
	if sess.Role == model.RoleTeacher {
		org := sess.Org
		if org == "" {
			org = slot.Org
		}
		r, err := repo.New(cli.store, repo.Scope{Org: org})
		if err != nil {
			return err
		}
		if err := r.EnsureTeacherCollections(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintf(cli.out, "Signed in as %s. Next: %s\n", sess.Email, target)
	return nil
}

func (cli *commandLine) logout() error {
	ctx := context.Background()
	for _, slot := range []session.Slot{session.SiteSlot(), session.TeacherSlot("")} {
		if err := session.NewManager(cli.store, slot).Logout(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintln(cli.out, "Signed out.")
	return nil
}

// signedIn finds the current session, teacher portal first, and binds a
// repository to the active organization.
func (cli *commandLine) signedIn(ctx context.Context, roles ...model.Role) (model.Session, *repo.Repository, error) {
	org, err := repo.ActiveOrg(ctx, cli.store)
	if err != nil {
		return model.Session{}, nil, err
	}
	for _, slot := range []session.Slot{session.TeacherSlot(org), session.SiteSlot()} {
		mgr := session.NewManager(cli.store, slot)
		cur, err := mgr.Current(ctx)
		if err != nil {
			return model.Session{}, nil, err
		}
		if cur == nil {
			continue
		}
		sess, err := mgr.Require(ctx, roles...)
		if err != nil {
			return model.Session{}, nil, err
		}
		scope, err := repo.ScopeFromStore(ctx, cli.store, slot.SessionKey)
		if err != nil {
			return model.Session{}, nil, err
		}
		r, err := repo.New(cli.store, scope)
		if err != nil {
			return model.Session{}, nil, err
		}
		return sess, r, nil
	}
	return model.Session{}, nil, &session.RedirectError{Target: session.TargetLogin, Reason: "not signed in"}
}

func (cli *commandLine) whoami() error {
	sess, r, err := cli.signedIn(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s <%s> %s @ %s\n", sess.Name, sess.Email, sess.Role, r.Org())
	return nil
}

func (cli *commandLine) addStudent(first, last, class, roll, phone string) error {
	ctx := context.Background()
	_, r, err := cli.signedIn(ctx, model.RoleTeacher)
	if err != nil {
		return err
	}
	st, err := r.AddStudent(ctx, model.Student{
		FirstName: first,
		LastName:  last,
		Class:     class,
		Roll:      roll,
		Phone:     phone,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Added %s (%s)\n", st.FullName(), st.ID)
	return nil
}

func (cli *commandLine) students() error {
	ctx := context.Background()
	_, r, err := cli.signedIn(ctx, model.RoleTeacher)
	if err != nil {
		return err
	}
	all, err := r.Students().All(ctx)
	if err != nil {
		return err
	}
	table := view.StudentsTable(all)
	if table.Empty != "" {
		fmt.Fprintln(cli.out, table.Empty)
		return nil
	}
	for _, row := range table.Rows {
		fmt.Fprintf(cli.out, "%d\t%s\t%s\t%s\t%s\n", row.Index, row.Name, row.Class, row.Roll, row.Phone)
	}
	return nil
}

func (cli *commandLine) clock(in bool, note string) error {
	ctx := context.Background()
	sess, r, err := cli.signedIn(ctx, model.RoleTeacher)
	if err != nil {
		return err
	}
	svc := attendance.NewService(r, cli.dedup)
	clock := svc.ClockOut
	if in {
		clock = svc.ClockIn
	}
	rec, err := clock(ctx, sess.Email, note)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s • %s\n", strings.ToUpper(rec.Action), cli.fmt.DateTime(rec.Date.Time))
	return nil
}

func (cli *commandLine) dashboard(html bool) error {
	ctx := context.Background()
	sess, r, err := cli.signedIn(ctx, model.RoleTeacher)
	if err != nil {
		return err
	}
	d, err := view.BuildTeacherDashboard(ctx, r, sess, cli.fmt)
	if err != nil {
		return err
	}
	if html {
		return view.Render(cli.out, view.TemplateTeacherDashboard, d)
	}
	out, err := sonic.ConfigStd.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, string(out))
	return err
}

func (cli *commandLine) exportClasses(path string) error {
	ctx := context.Background()
	_, r, err := cli.signedIn(ctx, model.RoleTeacher)
	if err != nil {
		return err
	}
	if path == "" {
		path = transfer.ClassesFilename(r.Org())
	}
	var buf bytes.Buffer
	if err := transfer.ExportRepository(ctx, &buf, r); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write export")
	}
	fmt.Fprintf(cli.out, "Exported to %s\n", path)
	return nil
}

func (cli *commandLine) importClasses(path string) error {
	ctx := context.Background()
	_, r, err := cli.signedIn(ctx, model.RoleTeacher)
	if err != nil {
		return err
	}
	var in io.Reader = cli.stdinF
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "open import")
		}
		defer f.Close()
		in = f
	}
	b, err := transfer.DecodeClasses(in)
	if err != nil {
		return err
	}
	if err := transfer.ApplyClasses(ctx, r, b); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Import done")
	return nil
}

func (cli *commandLine) exportStudents(format, path string) error {
	ctx := context.Background()
	_, r, err := cli.signedIn(ctx, model.RoleTeacher)
	if err != nil {
		return err
	}
	all, err := r.Students().All(ctx)
	if err != nil {
		return err
	}
	if path == "" {
		path = transfer.StudentsFilename(r.Org(), format)
	}
	var buf bytes.Buffer
	if format == "xlsx" {
		err = transfer.ExportStudentsXLSX(&buf, all)
	} else {
		err = transfer.ExportStudentsCSV(&buf, all)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write export")
	}
	fmt.Fprintf(cli.out, "Exported %d students to %s\n", len(all), path)
	return nil
}
