// Command maintctl records hour meter readings and services for mine equipment and
// reports which components are due.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"maintenance-backend/config"
	"maintenance-backend/internal/db"
	"maintenance-backend/internal/maintenance"
	"maintenance-backend/internal/metrics"
	"maintenance-backend/internal/store"
)

const defaultConfigPath = "./config/config.yaml"

// app carries the wiring shared by every command.
type app struct {
	cfg     *config.Config
	db      *gorm.DB
	store   store.Store
	svc     *maintenance.Service
	metrics *metrics.Recorder
	out     io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"migrate":         {"create or update the database schema", runMigrate},
		"equipment":       {"add|list|show|update|delete equipment units", runEquipment},
		"reading":         {"add|list hour meter readings", runReading},
		"import-readings": {"import hour meter readings from a CSV file", runImportReadings},
		"component":       {"add|from-setting|list|update|delete components", runComponent},
		"setting":         {"add|list|delete component templates", runSetting},
		"service":         {"component|periodic|history of performed maintenance", runService},
		"breakdown":       {"add a breakdown for Pareto analysis", runBreakdown},
		"status":          {"show component status and projected due dates of a unit", runStatus},
		"schedule":        {"list upcoming and overdue components of the fleet", runSchedule},
		"pareto":          {"rank breakdown downtime by area or sub-component", runPareto},
		"reconcile":       {"recompute hour meters from the reading log", runReconcile},
		"alerts":          {"push overdue and due-soon alerts to subscribers", runAlerts},
		"export":          {"write a report to .xlsx or .csv", runExport},
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: maintctl [-config path] <command> [flags]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-16s %s\n", name, commands[name].usage)
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("failed to load .env file")
	}
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	global := flag.NewFlagSet("maintctl", flag.ContinueOnError)
	configPath := global.String("config", "", "path to YAML config (default $CONFIG_PATH or "+defaultConfigPath+")")
	global.Usage = usage
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage()
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", rest[0])
		usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	if err := config.ConfigureLogging(cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid log level:", err)
		return 1
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer db.Close(gormDB)

	st := store.NewGormStore(gormDB)
	a := &app{
		cfg:     cfg,
		db:      gormDB,
		store:   st,
		svc:     maintenance.NewService(st),
		metrics: metrics.New(),
		out:     out,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cmd.run(ctx, a, rest[1:])
	if merr := a.metrics.WriteTextfile(cfg.Metrics.Textfile, time.Now()); merr != nil {
		log.WithError(merr).Warn("metrics not written")
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// loadConfig reads the explicit path, then $CONFIG_PATH, then the default path.
// Only a missing default file falls back to built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(defaultConfigPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("%s not found, using defaults", defaultConfigPath)
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", defaultConfigPath, err)
	}
	return cfg, nil
}

func newFlagSet(name string) *flag.FlagSet {
	flags := flag.NewFlagSet("maintctl "+name, flag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	return flags
}

// verb splits "add -x 1" into the verb and its flags.
func verb(name string, args []string, verbs ...string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%s: expected one of %v", name, verbs)
	}
	for _, v := range verbs {
		if args[0] == v {
			return v, args[1:], nil
		}
	}
	return "", nil, fmt.Errorf("%s: unknown action %q, expected one of %v", name, args[0], verbs)
}

func runMigrate(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("migrate").Parse(args); err != nil {
		return err
	}
	if err := db.Migrate(a.db.WithContext(ctx)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "schema up to date")
	return nil
}
