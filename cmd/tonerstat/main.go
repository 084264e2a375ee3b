// Command tonerstat reports consumable levels for the facility's printers
// over SNMP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"printadmin/config"
	"printadmin/discovery"
	"printadmin/logger"
	"printadmin/toner"
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
	showVersion := flag.Bool("version", false, "Show version information and exit")
	quiet := flag.Bool("quiet", false, "Suppress informational output")
	flag.BoolVar(quiet, "q", false, "Shorthand for --quiet")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tonerstat %s (%s)\n", Version, GitCommit)
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

	devices := cfg.Printers
	if flag.NArg() > 0 {
		devices = flag.Args()
	}
	if *discover {
		wait := time.Duration(*discoverWait) * time.Second
		devices, err = discovery.Printers(context.Background(), wait, log)
		if err != nil {
			util.ShowError("printer discovery failed: " + err.Error())
			return 1
		}
	}
	if len(devices) == 0 {
		util.ShowError("no printers configured (set printers in the config file, pass addresses, or use -discover)")
		return 1
	}

	timeout := time.Duration(cfg.SNMP.TimeoutSeconds) * time.Second
	failed := false
	for _, device := range devices {
		if err := report(device, cfg.SNMP.Community, timeout, log); err != nil {
			util.ShowError(fmt.Sprintf("%s: %v", device, err))
			failed = true
		}
	}
	if failed {
		return 1
	}
	return 0
}

// report prints one device's consumables, one line per supply.
func report(device, community string, timeout time.Duration, log *logger.Logger) error {
	log.Debug("querying supplies", "device", device)
	conn, err := toner.Connect(device, community, timeout)
	if err != nil {
		return err
	}
	defer conn.Conn.Close()

	supplies, err := toner.Query(conn)
	if err != nil {
		return err
	}

	fmt.Printf("%s:\n", device)
	if len(supplies) == 0 {
		fmt.Println("  no supplies reported")
		return nil
	}
	for _, s := range supplies {
		if s.Percent < 0 {
			fmt.Printf("  %-40s unknown\n", s.Description)
			continue
		}
		fmt.Printf("  %-40s %3.0f%%\n", s.Description, s.Percent)
	}
	return nil
}
