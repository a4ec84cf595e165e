package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/natefinch/lumberjack"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("main")

var stdoutLogFormat = logging.MustStringFormatter(
	`%{color:reset}%{color}%{time:15:04:05.000} [%{shortfunc}] [%{level}] %{message}`,
)

var fileLogFormat = logging.MustStringFormatter(
	`%{time:2006-01-02 15:04:05.000} [%{level}] [%{module}/%{shortfunc}] %{message}`,
)

// Options are shared by every command.
type Options struct {
	File      string  `short:"f" long:"file" description:"path of the table file" env:"DHASH_FILE" default:"table.dht"`
	Capacity  int     `short:"c" long:"capacity" description:"initial capacity when the table file does not exist yet" env:"DHASH_CAPACITY" default:"8"`
	Threshold float64 `short:"t" long:"threshold" description:"load factor threshold when the table file does not exist yet" env:"DHASH_LOAD_FACTOR" default:"0.75"`
	LogLevel  string  `short:"l" long:"loglevel" description:"set the logging level [debug, info, notice, warning, error, critical]" env:"DHASH_LOG_LEVEL" default:"warning"`
	LogFile   string  `long:"logfile" description:"also write logs to this file, rotated at 10MB" env:"DHASH_LOG_FILE"`
}

var opts Options

// out receives command output; logs go to stderr.
var out io.Writer = os.Stdout

var parser = flags.NewParser(&opts, flags.Default)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warningf("Failed to load .env: %v", err)
	}

	parser.AddCommand("insert",
		"insert or update a key",
		"The insert command stores a value under a key and saves the table",
		&insertCmd)
	parser.AddCommand("search",
		"look up a key",
		"The search command prints the value stored under a key, or \"Not Found\"",
		&searchCmd)
	parser.AddCommand("remove",
		"remove a key",
		"The remove command clears the bucket holding a key and saves the table",
		&removeCmd)
	parser.AddCommand("dump",
		"print every bucket",
		"The dump command prints one line per bucket",
		&dumpCmd)
	parser.AddCommand("stats",
		"print bucket statistics",
		"The stats command prints size, load factor, probe lengths and the table digest",
		&statsCmd)
	parser.AddCommand("probe",
		"print the probe sequence of a key",
		"The probe command lists the buckets a lookup for the key visits at the current capacity",
		&probeCmd)
	parser.AddCommand("fill",
		"insert random keys",
		"The fill command inserts random keys, saves the table and prints table metrics",
		&fillCmd)
	parser.AddCommand("export",
		"write a snappy-compressed copy of the table",
		"The export command validates the table file and writes it snappy framed to the output path",
		&exportCmd)
	parser.AddCommand("import",
		"load a snappy-compressed table",
		"The import command decodes a snappy framed table and saves it as the table file",
		&importCmd)

	parser.CommandHandler = func(command flags.Commander, args []string) error {
		if err := setupLogging(opts.LogLevel, opts.LogFile); err != nil {
			return err
		}
		return command.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level, logFile string) error {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return err
	}

	backendStdout := logging.NewLogBackend(os.Stderr, "", 0)
	backends := []logging.Backend{logging.NewBackendFormatter(backendStdout, stdoutLogFormat)}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return err
		}
		w := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // Megabytes
			MaxBackups: 3,
			MaxAge:     30, // Days
		}
		backendFile := logging.NewLogBackend(w, "", 0)
		backends = append(backends, logging.NewBackendFormatter(backendFile, fileLogFormat))
	}

	logging.SetBackend(backends...)
	logging.SetLevel(lvl, "")
	return nil
}
