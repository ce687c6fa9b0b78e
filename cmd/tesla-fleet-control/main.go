package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/teslamotors/fleet-client/internal/log"
	"github.com/teslamotors/fleet-client/pkg/cli"
	"github.com/teslamotors/fleet-client/pkg/fleet"
	"github.com/teslamotors/fleet-client/pkg/oauth"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Vehicle commands require a VIN (-vin or $TESLA_VIN) and an OAuth token.
 * Account commands require only a token.
 * Run with -demo to use a simulated vehicle without credentials.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun without a COMMAND to enter an interactive shell.")
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, args []string, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := execute(ctx, acct, client, car, args); err != nil {
		if errors.Is(err, fleet.ErrAuthenticationRequired) {
			writeErr("Not logged in. Run tesla-fleet-auth login first.")
		} else if fleet.Temporary(err) {
			writeErr("Temporary failure (the vehicle may be asleep): %s", err)
		} else {
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

func runInteractiveShell(acct *oauth.Client, client *fleet.Client, car *fleet.Vehicle, timeout time.Duration) int {
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Printf("> "); scanner.Scan(); fmt.Printf("> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		runCommand(acct, client, car, args, timeout)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

// findVehicle resolves the configured VIN to a vehicle record. In demo mode with no VIN, the
// demo vehicle is selected.
func findVehicle(ctx context.Context, client *fleet.Client, vin string, demo bool) (*fleet.Vehicle, error) {
	if vin == "" && !demo {
		return nil, nil
	}
	vehicles, err := client.Vehicles(ctx)
	if err != nil {
		return nil, err
	}
	if vin == "" {
		vin = fleet.DemoVIN
	}
	for i := range vehicles {
		if vehicles[i].VIN == vin {
			return &vehicles[i], nil
		}
	}
	return nil, fmt.Errorf("no vehicle with VIN %s on this account", vin)
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		debug          bool
		commandTimeout time.Duration
	)
	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		writeErr("Failed to load credential configuration: %s", err)
		os.Exit(1)
	}
	flag.Usage = Usage
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.DurationVar(&commandTimeout, "command-timeout", 30*time.Second, "Set timeout for API requests.")
	config.RegisterCommandLineFlags()
	flag.Parse()
	if debug {
		log.SetLevel(log.LevelDebug)
	}
	if err := cli.LoadEnvFile(""); err != nil {
		writeErr("Failed to load .env file: %s", err)
		return
	}
	config.ReadFromEnvironment()

	acct, client, err := config.Connect()
	if err != nil {
		writeErr("Failed to initialize client: %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	car, err := findVehicle(ctx, client, config.VIN, config.Demo)
	cancel()
	if err != nil {
		writeErr("%s", err)
		return
	}

	if flag.NArg() == 0 {
		status = runInteractiveShell(acct, client, car, commandTimeout)
	} else {
		status = runCommand(acct, client, car, flag.Args(), commandTimeout)
	}
}
