package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/ratiba/apps/shared"
	"github.com/trezcool/ratiba/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = migrateDB         // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	deps *shared.Deps
	in   io.Reader
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  school -key KEY                             - show a school's classes")
	_, _ = fmt.Fprintln(cli.out, "  timetable -key KEY -class ID [-week N]      - show a class timetable")
	_, _ = fmt.Fprintln(cli.out, "  teachers -key KEY [-week N] [-q QUERY]      - list (or search) the school's teachers")
	_, _ = fmt.Fprintln(cli.out, "  teacher -key KEY -name NAME [-week N]       - show a teacher's timetable across classes")
	_, _ = fmt.Fprintln(cli.out, "  browse -key KEY -class ID [-week N]         - browse weeks interactively (n, p, <week>, q)")
	_, _ = fmt.Fprintln(cli.out, "  login -username USERNAME                    - log in; the password is prompted next")
	_, _ = fmt.Fprintln(cli.out, "  logout                                      - log out and forget the session")
	_, _ = fmt.Fprintln(cli.out, "  children                                    - list the children of the logged in parent")
	_, _ = fmt.Fprintln(cli.out, "  child -uuid UUID [-week N] [-select]        - show (and select) a child's timetable")
	_, _ = fmt.Fprintln(cli.out, "  grades -uuid UUID [-free]                   - show a child's grades")
	_, _ = fmt.Fprintln(cli.out, "  remind [-on|-off]                           - toggle lesson reminders, or run them")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                      - run a goose command on the postgres store")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	cmd := flag.NewFlagSet(args[1], flag.ContinueOnError)
	cmd.SetOutput(cli.out)
	key := cmd.String("key", "", "The public school key (as found in the timetable url).")
	classID := cmd.Int("class", 0, "The class id (see `school`).")
	week := cmd.Int("week", 0, "The week id, 0-52 (0 is the current week).")
	query := cmd.String("q", "", "Only list teachers matching this query.")
	name := cmd.String("name", "", "The teacher's full name.")
	username := cmd.String("username", "", "The eAsistent username.")
	uuid := cmd.String("uuid", "", "The child uuid (see `children`).")
	sel := cmd.Bool("select", false, "Select the child for reminders.")
	free := cmd.Bool("free", false, "Read grades from notifications (free accounts).")
	on := cmd.Bool("on", false, "Enable reminders.")
	off := cmd.Bool("off", false, "Disable reminders.")

	switch args[1] {
	case "school", "timetable", "teachers", "teacher", "browse", "login", "logout", "children", "child", "grades", "remind":
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return migrateFunc(ctx, cli.deps, args[2], args[3:]...)
	default:
		cli.printUsage()
		return errHelp
	}

	weekIn := shared.WeekInput{SchoolKey: *key, WeekID: *week}
	switch args[1] {
	case "school":
		if err := cli.validate(&weekIn); err != nil {
			return err
		}
		return cli.school(ctx, weekIn.SchoolKey)
	case "timetable":
		in := shared.ClassWeekInput{WeekInput: weekIn, ClassID: *classID}
		if err := cli.validate(&in); err != nil {
			return err
		}
		return cli.timetable(ctx, in)
	case "teachers":
		if err := cli.validate(&weekIn); err != nil {
			return err
		}
		return cli.teachers(ctx, weekIn, *query)
	case "teacher":
		in := shared.TeacherWeekInput{WeekInput: weekIn, Teacher: *name}
		if err := cli.validate(&in); err != nil {
			return err
		}
		return cli.teacher(ctx, in)
	case "browse":
		in := shared.ClassWeekInput{WeekInput: weekIn, ClassID: *classID}
		if err := cli.validate(&in); err != nil {
			return err
		}
		return cli.browse(ctx, in)
	case "login":
		if *username == "" {
			cmd.Usage()
			return errHelp
		}
		_, _ = fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		_, _ = fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		in := shared.LoginInput{Username: *username, Password: string(pwd)}
		if err = cli.validate(&in); err != nil {
			return err
		}
		return cli.login(ctx, in)
	case "logout":
		return cli.logout(ctx)
	case "children":
		return cli.children(ctx)
	case "child":
		in := shared.ChildWeekInput{UUID: *uuid, WeekID: *week}
		if err := cli.validate(&in); err != nil {
			return err
		}
		return cli.child(ctx, in, *sel)
	case "grades":
		if *uuid == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.grades(ctx, *uuid, *free)
	default: // remind
		if *on && *off {
			cmd.Usage()
			return errHelp
		}
		return cli.remind(ctx, *on, *off)
	}
}

func (cli *commandLine) validate(input interface{}) error {
	return shared.Validate(cli.deps.Validate, cli.deps.Translator, input)
}

func migrateDB(ctx context.Context, deps *shared.Deps, command string, args ...string) error {
	db, err := database.Open(ctx, deps.Conf.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return database.Migrate(db, command, args...)
}
