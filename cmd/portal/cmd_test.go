package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolportal/internal/auth"
	"schoolportal/internal/kv"
	"schoolportal/internal/repo"
	"schoolportal/internal/session"
	"schoolportal/internal/transfer"
	"schoolportal/internal/view"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &commandLine{
		store:  kv.NewMemory(),
		out:    &out,
		fmt:    view.NewFormatter("GHS", "UTC"),
		stdinF: strings.NewReader(""),
	}, &out
}

func withPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
	wantOut string
}

func runAll(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"portal"}, tt.args...)
		withPassword(tt.pwd)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t)
	runAll(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "register without email", args: []string{"register", "-org", "Acme"}, wantErr: errHelp},
		{name: "register without password", args: []string{"register", "-org", "Acme", "-email", "a@x.com"}, wantErr: errHelp},
		{name: "login without email", args: []string{"login"}, wantErr: errHelp},
		{name: "add-student without first name", args: []string{"add-student"}, wantErr: errHelp},
		{name: "import without file", args: []string{"import-classes"}, wantErr: errHelp},
		{name: "bad export format", args: []string{"export-students", "-format", "pdf"}, wantErr: errHelp},
	})
}

func Test_commandLine_session(t *testing.T) {
	cli, out := setup(t)
	runAll(t, cli, out, []cliTest{
		{
			name:    "register hr",
			args:    []string{"register", "-org", "Acme", "-name", "Ama", "-email", "Ama@Acme.io", "-role", "hr"},
			pwd:     "secret",
			wantOut: "Registered ama@acme.io (hr) in Acme",
		},
		{
			name:    "duplicate email",
			args:    []string{"register", "-org", "Other", "-name", "Kofi", "-email", "ama@acme.io", "-role", "teacher"},
			pwd:     "x",
			wantErr: auth.ErrDuplicateEmail,
		},
		{
			name:    "wrong password",
			args:    []string{"login", "-email", "ama@acme.io"},
			pwd:     "nope",
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:    "login",
			args:    []string{"login", "-email", "AMA@acme.io"},
			pwd:     " secret ",
			wantOut: "Next: hr-dashboard",
		},
		{name: "whoami", args: []string{"whoami"}, wantOut: "Ama <ama@acme.io> hr @ Acme"},
		{name: "logout", args: []string{"logout"}, wantOut: "Signed out."},
	})

	org, err := repo.ActiveOrg(context.Background(), cli.store)
	require.NoError(t, err)
	assert.Equal(t, "Acme", org)

	err = cli.run([]string{"portal", "whoami"})
	var redirect *session.RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, session.TargetLogin, redirect.Target)
}

func Test_commandLine_teacherWork(t *testing.T) {
	cli, out := setup(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "roster.csv")
	classesPath := filepath.Join(dir, "classes.json")

	runAll(t, cli, out, []cliTest{
		{
			name: "register teacher",
			args: []string{"register", "-org", "Acme", "-name", "Kofi", "-email", "kofi@acme.io", "-role", "teacher"},
			pwd:  "pw",
		},
		{name: "login", args: []string{"login", "-email", "kofi@acme.io"}, pwd: "pw", wantOut: "teacher-dashboard"},
		{name: "empty roster", args: []string{"students"}, wantOut: view.EmptyStudents},
		{name: "export empty roster", args: []string{"export-students", "-o", csvPath}, wantErr: transfer.ErrNothingToExport},
		{name: "add student", args: []string{"add-student", "-first", "Esi", "-last", "Mensah", "-class", "JHS1"}, wantOut: "Added Esi Mensah"},
		{name: "roster", args: []string{"students"}, wantOut: "1\tEsi Mensah\tJHS1"},
		{name: "clock in", args: []string{"clock-in"}, wantOut: "IN • "},
		{name: "clock out", args: []string{"clock-out", "-note", "done"}, wantOut: "OUT • "},
		{name: "dashboard", args: []string{"dashboard"}, wantOut: `"attendanceRate": "100%"`},
		{name: "dashboard html", args: []string{"dashboard", "-html"}, wantOut: `id="teacherDashboardRoot"`},
		{name: "export roster", args: []string{"export-students", "-o", csvPath}, wantOut: "Exported 1 students"},
		{name: "export classes", args: []string{"export-classes", "-o", classesPath}, wantOut: "Exported to"},
	})

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,firstName,lastName,class,roll,phone,email\n\""))

	bundle, err := os.ReadFile(classesPath)
	require.NoError(t, err)
	assert.Contains(t, string(bundle), `"classes": []`)
}

func Test_commandLine_importClasses(t *testing.T) {
	cli, out := setup(t)
	withPassword("pw")
	require.NoError(t, cli.run([]string{"portal", "register", "-org", "Acme", "-name", "Kofi", "-email", "kofi@acme.io", "-role", "teacher"}))
	require.NoError(t, cli.run([]string{"portal", "login", "-email", "kofi@acme.io"}))

	cli.stdinF = strings.NewReader(`{"classes":[{"id":"c1","name":"JHS 1","students":[]}]}`)
	out.Reset()
	require.NoError(t, cli.run([]string{"portal", "import-classes", "-f", "-"}))
	assert.Contains(t, out.String(), "Import done")

	cli.stdinF = strings.NewReader(`not json`)
	err := cli.run([]string{"portal", "import-classes", "-f", "-"})
	require.Error(t, err)
	assert.Equal(t, "Invalid JSON", err.Error())

	_, r, err := cli.signedIn(context.Background())
	require.NoError(t, err)
	classes, err := r.Classes().All(context.Background())
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "JHS 1", classes[0].Name)
}

func Test_commandLine_teacherPortal(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	withPassword("pw")
	require.NoError(t, cli.run([]string{"portal", "register", "-org", "Acme", "-name", "Ama", "-email", "ama@acme.io", "-role", "hr"}))
	require.NoError(t, cli.run([]string{"portal", "login", "-email", "ama@acme.io"}))

	_, err := auth.NewRegistry(cli.store, repo.Key("Acme", repo.TeacherAccounts)).Register(ctx, auth.Registration{
		Org: "Acme", Name: "Kofi", Email: "kofi@acme.io", Password: "tpw", Role: "teacher",
	})
	require.NoError(t, err)

	// hr may not use teacher commands.
	err = cli.run([]string{"portal", "students"})
	var redirect *session.RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, session.TargetUnauthorized, redirect.Target)

	withPassword("tpw")
	out.Reset()
	require.NoError(t, cli.run([]string{"portal", "login", "-teacher", "-email", "kofi@acme.io"}))
	assert.Contains(t, out.String(), "teacher-dashboard")
	v, ok, err := cli.store.Get(ctx, "Acme_class_schedule")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)

	out.Reset()
	require.NoError(t, cli.run([]string{"portal", "whoami"}))
	assert.Contains(t, out.String(), "Kofi <kofi@acme.io> teacher @ Acme")
}
