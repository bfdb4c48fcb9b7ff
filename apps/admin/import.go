package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/result"
)

// readFile loads a whole workbook; excelize needs random access anyway.
func readFile(path string) (*bytes.Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return bytes.NewReader(data), nil
}

func (cli *commandLine) checkModule(ctx context.Context, id int) error {
	m, err := cli.modules.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Module: %s\n", m.Name)
	return nil
}

func (cli *commandLine) importStudents(moduleID int, path string) error {
	ctx := context.Background()
	if err := cli.checkModule(ctx, moduleID); err != nil {
		return err
	}
	f, err := readFile(path)
	if err != nil {
		return err
	}

	sum, err := cli.students.Import(ctx, moduleID, f)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, sum.String())
	for _, row := range sum.SkippedRows {
		fmt.Fprintf(cli.out, "  row %d: %s\n", row.Row, row.Error)
	}
	return nil
}

func (cli *commandLine) importAttendance(moduleID, week int, rule, path, overallPath string) error {
	ctx := context.Background()
	if err := cli.checkModule(ctx, moduleID); err != nil {
		return err
	}
	req := attendance.ImportRequest{ModuleID: moduleID, WeekNo: week, Rule: attendance.Rule(rule)}

	var err error
	if req.Weekly, err = readFile(path); err != nil {
		return err
	}
	if overallPath != "" {
		if req.Overall, err = readFile(overallPath); err != nil {
			return err
		}
	}
	if err = req.Validate(cli.validate); err != nil {
		return err
	}

	sum, err := cli.attendance.Import(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, sum.Message())
	for _, s := range sum.MentorStats {
		fmt.Fprintf(cli.out, "  %s: %d\n", s.Mentor, s.Total)
	}
	return nil
}

func (cli *commandLine) importResults(req result.UploadRequest, path string) error {
	ctx := context.Background()
	if err := cli.checkModule(ctx, req.ModuleID); err != nil {
		return err
	}
	f, err := readFile(path)
	if err != nil {
		return err
	}
	req.File = f
	req.UploadedBy = "admin"
	req.Hooks.Progress = func(p result.Progress) {
		if p.Total > 0 {
			fmt.Fprintf(cli.out, "\r%d/%d %s", p.Current, p.Total, p.Message)
		}
	}
	outcome, err := cli.results.Process(ctx, req)
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, outcome.Message)
	for _, s := range outcome.MentorStats {
		fmt.Fprintf(cli.out, "  %s: %d\n", s.Mentor, s.Total)
	}
	return nil
}

func (cli *commandLine) importPracticals(moduleID int, path string) error {
	ctx := context.Background()
	if err := cli.checkModule(ctx, moduleID); err != nil {
		return err
	}
	f, err := readFile(path)
	if err != nil {
		return err
	}

	sum, err := cli.practicals.Import(ctx, moduleID, "admin", f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Practical marks imported (%s): %d/%d rows matched\n", sum.Mode, sum.RowsMatched, sum.RowsTotal)
	for _, h := range sum.UnknownHeaders {
		fmt.Fprintf(cli.out, "  unknown header: %s\n", h)
	}
	for _, s := range sum.Suggestions {
		fmt.Fprintf(cli.out, "  did you mean %s for %s?\n", s.Subject, s.Header)
	}
	return nil
}

func (cli *commandLine) lockWeek(moduleID, week int) error {
	ctx := context.Background()
	if err := cli.checkModule(ctx, moduleID); err != nil {
		return err
	}
	if err := cli.attendance.LockWeek(ctx, moduleID, week); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Week %d locked\n", week)
	return nil
}
