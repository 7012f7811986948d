package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"golang.org/x/term"

	"schoolportal/internal/kv"
	"schoolportal/internal/view"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	store  kv.Store
	out    io.Writer
	fmt    view.Formatter
	dedup  time.Duration
	stdinF io.Reader
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  register -org ORG -name NAME -email EMAIL -role hr|teacher|employee - create an account")
	fmt.Fprintln(cli.out, "  login -email EMAIL [-teacher] - sign in (teacher portal of the active org with -teacher)")
	fmt.Fprintln(cli.out, "  logout - sign out of every portal")
	fmt.Fprintln(cli.out, "  whoami - show the signed-in account")
	fmt.Fprintln(cli.out, "  add-student -first FIRST [-last LAST] [-class CLASS] [-roll ROLL] [-phone PHONE]")
	fmt.Fprintln(cli.out, "  students - list the roster")
	fmt.Fprintln(cli.out, "  clock-in [-note NOTE] / clock-out [-note NOTE]")
	fmt.Fprintln(cli.out, "  dashboard [-html] - print the teacher dashboard")
	fmt.Fprintln(cli.out, "  export-classes [-o FILE] / import-classes -f FILE|-")
	fmt.Fprintln(cli.out, "  export-students [-format csv|xlsx] [-o FILE]")
}

// prompt reads a password from the terminal without echo.
func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	registerCmd := flag.NewFlagSet("register", flag.ContinueOnError)
	registerOrg := registerCmd.String("org", "", "Organization name.")
	registerName := registerCmd.String("name", "", "Full name.")
	registerEmail := registerCmd.String("email", "", "Email address. The password will be prompted next.")
	registerRole := registerCmd.String("role", "", "One of hr, teacher, employee.")

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginEmail := loginCmd.String("email", "", "Email address. The password will be prompted next.")
	loginTeacher := loginCmd.Bool("teacher", false, "Sign in to the teacher portal of the active organization.")

	addStudentCmd := flag.NewFlagSet("add-student", flag.ContinueOnError)
	studentFirst := addStudentCmd.String("first", "", "First name.")
	studentLast := addStudentCmd.String("last", "", "Last name.")
	studentClass := addStudentCmd.String("class", "", "Class name.")
	studentRoll := addStudentCmd.String("roll", "", "Roll number.")
	studentPhone := addStudentCmd.String("phone", "", "Guardian phone.")

	clockCmd := flag.NewFlagSet("clock", flag.ContinueOnError)
	clockNote := clockCmd.String("note", "", "Optional note.")

	dashboardCmd := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	dashboardHTML := dashboardCmd.Bool("html", false, "Print the HTML fragment instead of JSON.")

	exportClassesCmd := flag.NewFlagSet("export-classes", flag.ContinueOnError)
	exportClassesOut := exportClassesCmd.String("o", "", "Output file. Defaults to ORG_classes.json.")

	importClassesCmd := flag.NewFlagSet("import-classes", flag.ContinueOnError)
	importClassesIn := importClassesCmd.String("f", "", "Bundle to import, or - for stdin.")

	exportStudentsCmd := flag.NewFlagSet("export-students", flag.ContinueOnError)
	exportStudentsFormat := exportStudentsCmd.String("format", "csv", "csv or xlsx.")
	exportStudentsOut := exportStudentsCmd.String("o", "", "Output file. Defaults to ORG_students.FORMAT.")

	for _, fs := range []*flag.FlagSet{registerCmd, loginCmd, addStudentCmd, clockCmd, dashboardCmd, exportClassesCmd, importClassesCmd, exportStudentsCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "register":
		if err := registerCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *registerEmail == "" {
			registerCmd.Usage()
			return errHelp
		}
		pwd, err := cli.prompt("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			registerCmd.Usage()
			return errHelp
		}
		return cli.register(*registerOrg, *registerName, *registerEmail, pwd, *registerRole)

	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.prompt("Enter password:")
		if err != nil {
			return err
		}
		return cli.login(*loginEmail, pwd, *loginTeacher)

	case "logout":
		return cli.logout()

	case "whoami":
		return cli.whoami()

	case "add-student":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *studentFirst == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		return cli.addStudent(*studentFirst, *studentLast, *studentClass, *studentRoll, *studentPhone)

	case "students":
		return cli.students()

	case "clock-in", "clock-out":
		if err := clockCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.clock(args[1] == "clock-in", *clockNote)

	case "dashboard":
		if err := dashboardCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.dashboard(*dashboardHTML)

	case "export-classes":
		if err := exportClassesCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.exportClasses(*exportClassesOut)

	case "import-classes":
		if err := importClassesCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *importClassesIn == "" {
			importClassesCmd.Usage()
			return errHelp
		}
		return cli.importClasses(*importClassesIn)

	case "export-students":
		if err := exportStudentsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *exportStudentsFormat != "csv" && *exportStudentsFormat != "xlsx" {
			exportStudentsCmd.Usage()
			return errHelp
		}
		return cli.exportStudents(*exportStudentsFormat, *exportStudentsOut)

	default:
		cli.printUsage()
		return errHelp
	}
}
