// Utility for obtaining, refreshing, and revoking Fleet API OAuth tokens

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teslamotors/fleet-client/internal/log"
	"github.com/teslamotors/fleet-client/pkg/cli"
	"github.com/teslamotors/fleet-client/pkg/oauth"
)

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "usage: %s [OPTION...] COMMAND\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Manages Fleet API OAuth tokens. Valid COMMANDs:")
	fmt.Fprintln(w, "  login    Run the browser login flow and save the resulting token.")
	fmt.Fprintln(w, "  refresh  Exchange the saved refresh token for a new access token.")
	fmt.Fprintln(w, "  revoke   Invalidate the saved token and remove it from local storage.")
	fmt.Fprintln(w, "  show     Print the saved token as JSON.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Available OPTIONs:")
	flag.PrintDefaults()
}

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var debug bool
	var timeout time.Duration
	config, err := cli.NewConfig(cli.FlagOAuth)
	if err != nil {
		writeErr("Failed to load credential configuration: %s", err)
		return
	}
	flag.Usage = usage
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.DurationVar(&timeout, "timeout", time.Minute, "Timeout for token operations.")
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

	if flag.NArg() != 1 {
		usage()
		return
	}

	account, err := config.Account()
	if err != nil {
		writeErr("Failed to initialize account: %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch flag.Arg(0) {
	case "login":
		err = login(ctx, config, account)
	case "refresh":
		err = refresh(ctx, config, account)
	case "revoke":
		err = revoke(ctx, config, account)
	case "show":
		err = show(config)
	default:
		writeErr("Unknown command %q", flag.Arg(0))
		usage()
		return
	}
	if err != nil {
		writeErr("%s", err)
		return
	}
	status = 0
}

func login(ctx context.Context, config *cli.Config, account *oauth.Client) error {
	flow, err := account.NewLoginFlow()
	if err != nil {
		return err
	}
	fmt.Println("Open the following URL in your browser and log in:")
	fmt.Println()
	fmt.Println("  " + flow.AuthURL)
	fmt.Println()
	fmt.Print("Paste the URL your browser was redirected to: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return fmt.Errorf("no redirect URL provided")
	}
	// A login flow only spans a single exchange; the flow-level timeout starts here.
	token, err := flow.Complete(ctx, strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	region, err := account.ResolveRegion(ctx)
	if err != nil {
		return fmt.Errorf("logged in, but could not resolve account region: %w", err)
	}
	fmt.Printf("Logged in. Account region: %s (%s)\n", region.Region, region.FleetAPIBaseURL)
	return saveToken(config, token)
}

func refresh(ctx context.Context, config *cli.Config, account *oauth.Client) error {
	token, err := account.RefreshToken(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	fmt.Println("Token refreshed.")
	return saveToken(config, token)
}

func revoke(ctx context.Context, config *cli.Config, account *oauth.Client) error {
	accepted, err := account.RevokeToken(ctx)
	if err != nil {
		return fmt.Errorf("revocation failed: %w", err)
	}
	if !accepted {
		writeErr("Server did not confirm revocation; the local token was discarded anyway.")
	}
	return config.DeleteToken()
}

func show(config *cli.Config) error {
	token, err := config.LoadToken()
	if err != nil {
		return fmt.Errorf("no saved token: %w", err)
	}
	blob, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(blob))
	return nil
}

func saveToken(config *cli.Config, token *oauth.AuthToken) error {
	if err := config.SaveToken(token); err != nil {
		return fmt.Errorf("could not save token: %w", err)
	}
	return nil
}
