// Command economode toggles the EconoMode print-quality setting across the
// facility's printer fleet via each device's embedded web console.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"printadmin/config"
	"printadmin/discovery"
	"printadmin/ews"
	"printadmin/fleet"
	"printadmin/history"
	"printadmin/logger"
	"printadmin/util"
)

// Set via -ldflags at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Configuration file path (default: search standard locations)")
	generateConfig := flag.Bool("generate-config", false, "Generate default config file and exit")
	discover := flag.Bool("discover", false, "Discover printers via mDNS instead of using the configured fleet")
	discoverWait := flag.Int("discover-wait", 3, "Seconds to wait for mDNS discovery responses")
	showHistory := flag.Bool("history", false, "Show recent runs from the history journal and exit")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	quiet := flag.Bool("quiet", false, "Suppress informational output")
	flag.BoolVar(quiet, "q", false, "Shorthand for --quiet")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("economode %s (%s)\n", Version, GitCommit)
		return 0
	}

	util.SetQuietMode(*quiet)

	if *generateConfig {
		path := *configPath
		if path == "" {
			path = "printadmin.toml"
		}
		if err := config.WriteDefault(path); err != nil {
			util.ShowError(err.Error())
			return 1
		}
		util.ShowSuccess("Wrote default config to " + path)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		util.ShowError(err.Error())
		return 1
	}

	log := logger.New(logger.LevelFromString(cfg.Logging.Level))
	defer log.Close()
	if *quiet {
		log.SetConsoleOutput(false)
	}
	if cfg.Logging.File != "" {
		if err := log.OpenLogFile(cfg.Logging.File); err != nil {
			util.ShowWarning(err.Error())
		}
	}

	if *showHistory {
		return printHistory(cfg)
	}

	if flag.NArg() != 1 || (flag.Arg(0) != "on" && flag.Arg(0) != "off") {
		usage()
		return 2
	}
	state := ews.EconomodeOff
	if flag.Arg(0) == "on" {
		state = ews.EconomodeOn
	}

	devices := cfg.Printers
	if *discover {
		wait := time.Duration(*discoverWait) * time.Second
		devices, err = discovery.Printers(context.Background(), wait, log)
		if err != nil {
			util.ShowError("printer discovery failed: " + err.Error())
			return 1
		}
	}
	if len(devices) == 0 {
		util.ShowError("no printers configured (set printers in the config file or use -discover)")
		return 1
	}

	secret, err := util.PromptSecret("Administrator PIN: ")
	if err != nil {
		util.ShowError(err.Error())
		return 1
	}

	startedAt := time.Now()
	runner := fleet.NewRunner(time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second, log)
	results, ok := runner.Run(state, devices, secret)

	if cfg.History.Enabled {
		recordHistory(cfg, log, startedAt, state, results)
	}

	if !ok {
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] on|off\n\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
}

// recordHistory journals a run. Journal failures are reported but never
// change the run's exit status.
func recordHistory(cfg *config.Config, log *logger.Logger, startedAt time.Time, state string, results []fleet.DeviceResult) {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Warn("history journal unavailable", "error", err.Error())
		return
	}
	defer store.Close()

	outcomes := make([]history.DeviceOutcome, 0, len(results))
	for _, r := range results {
		outcomes = append(outcomes, history.DeviceOutcome{
			Device:  r.Device,
			Outcome: r.Outcome.String(),
			Detail:  r.Detail,
		})
	}
	if _, err := store.RecordRun(context.Background(), startedAt, state, outcomes); err != nil {
		log.Warn("failed to record run in history journal", "error", err.Error())
	}
}

func printHistory(cfg *config.Config) int {
	if !cfg.History.Enabled {
		util.ShowError("history journal is disabled in the config file")
		return 1
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		util.ShowError(err.Error())
		return 1
	}
	defer store.Close()

	runs, err := store.RecentRuns(context.Background(), 10)
	if err != nil {
		util.ShowError(err.Error())
		return 1
	}
	if len(runs) == 0 {
		util.ShowInfo("No recorded runs")
		return 0
	}
	for _, run := range runs {
		fmt.Printf("%s economode %s\n", run.StartedAt.Format("2006-01-02 15:04:05"), run.Desired)
		for _, r := range run.Results {
			line := fmt.Sprintf("  %-24s %s", r.Device, r.Outcome)
			if r.Detail != "" {
				line += " (" + r.Detail + ")"
			}
			fmt.Println(line)
		}
	}
	return 0
}
