package main

import (
	"bufio"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/followup/core/academic"
	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/practical"
	"github.com/trezcool/followup/core/result"
	"github.com/trezcool/followup/core/student"
)

var (
	// mockable
	isTerminalFunc = term.IsTerminal
	readLineFunc   = func() (string, error) {
		return bufio.NewReader(os.Stdin).ReadString('\n')
	}

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	modules    *academic.Service
	students   *student.Service
	attendance *attendance.Service
	results    *result.Service
	practicals *practical.Service
	validate   *validator.Validate
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                    - run database migrations (goose commands)")
	fmt.Fprintln(cli.out, "  import-students -module ID -file PATH                     - import the student master")
	fmt.Fprintln(cli.out, "  import-attendance -module ID -week N -file PATH [-overall PATH] [-rule week|overall|both]")
	fmt.Fprintln(cli.out, "  import-results -module ID -test T1..T4|REMEDIAL|ALL_EXAMS -subject ID|ALL -file PATH [-mode subject|compiled] [-confirm yes]")
	fmt.Fprintln(cli.out, "  import-practicals -module ID -file PATH                   - import practical marks")
	fmt.Fprintln(cli.out, "  lock-week -module ID -week N                              - forbid further attendance uploads for a week")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	studentsCmd := flag.NewFlagSet("import-students", flag.ContinueOnError)
	studentsModule := studentsCmd.Int("module", 0, "The academic module ID.")
	studentsFile := studentsCmd.String("file", "", "The student master workbook.")

	attendanceCmd := flag.NewFlagSet("import-attendance", flag.ContinueOnError)
	attendanceModule := attendanceCmd.Int("module", 0, "The academic module ID.")
	attendanceWeek := attendanceCmd.Int("week", 0, "The week number.")
	attendanceRule := attendanceCmd.String("rule", string(attendance.RuleBoth), "The percentage deciding the calls: week, overall or both.")
	attendanceFile := attendanceCmd.String("file", "", "The weekly attendance workbook.")
	attendanceOverall := attendanceCmd.String("overall", "", "The cumulative attendance workbook (optional).")

	resultsCmd := flag.NewFlagSet("import-results", flag.ContinueOnError)
	resultsModule := resultsCmd.Int("module", 0, "The academic module ID.")
	resultsTest := resultsCmd.String("test", "", "The test: T1, T2, T3, T4, REMEDIAL or ALL_EXAMS.")
	resultsSubject := resultsCmd.String("subject", "", "The subject ID, or ALL along ALL_EXAMS.")
	resultsMode := resultsCmd.String("mode", result.ModeSubject, "The workbook layout: subject or compiled.")
	resultsConfirm := resultsCmd.String("confirm", "", "Type yes to allow the bulk replace of every upload.")
	resultsFile := resultsCmd.String("file", "", "The result workbook.")

	practicalsCmd := flag.NewFlagSet("import-practicals", flag.ContinueOnError)
	practicalsModule := practicalsCmd.Int("module", 0, "The academic module ID.")
	practicalsFile := practicalsCmd.String("file", "", "The practical marks workbook.")

	lockCmd := flag.NewFlagSet("lock-week", flag.ContinueOnError)
	lockModule := lockCmd.Int("module", 0, "The academic module ID.")
	lockWeek := lockCmd.Int("week", 0, "The week number.")

	for _, fs := range []*flag.FlagSet{studentsCmd, attendanceCmd, resultsCmd, practicalsCmd, lockCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "import-students":
		if err := studentsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *studentsModule <= 0 || *studentsFile == "" {
			studentsCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*studentsModule, *studentsFile)

	case "import-attendance":
		if err := attendanceCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *attendanceModule <= 0 || *attendanceFile == "" {
			attendanceCmd.Usage()
			return errHelp
		}
		return cli.importAttendance(*attendanceModule, *attendanceWeek, *attendanceRule, *attendanceFile, *attendanceOverall)

	case "import-results":
		if err := resultsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resultsModule <= 0 || *resultsFile == "" {
			resultsCmd.Usage()
			return errHelp
		}
		req := result.UploadRequest{
			ModuleID:  *resultsModule,
			TestName:  strings.ToUpper(strings.TrimSpace(*resultsTest)),
			SubjectID: *resultsSubject,
			Mode:      *resultsMode,
			Confirm:   *resultsConfirm,
		}
		if req.Bulk() && req.Confirm == "" && isTerminalFunc(int(os.Stdin.Fd())) {
			fmt.Fprintf(cli.out, "This replaces every result upload of module %d. Type %s to confirm: ", req.ModuleID, result.BulkConfirmation)
			line, err := readLineFunc()
			if err != nil && line == "" {
				return err
			}
			req.Confirm = strings.TrimSpace(line)
		}
		return cli.importResults(req, *resultsFile)

	case "import-practicals":
		if err := practicalsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *practicalsModule <= 0 || *practicalsFile == "" {
			practicalsCmd.Usage()
			return errHelp
		}
		return cli.importPracticals(*practicalsModule, *practicalsFile)

	case "lock-week":
		if err := lockCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *lockModule <= 0 || *lockWeek <= 0 {
			lockCmd.Usage()
			return errHelp
		}
		return cli.lockWeek(*lockModule, *lockWeek)

	default:
		cli.printUsage()
		return errHelp
	}
}
