package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/abrezinsky/gavel/internal/app"
	"github.com/abrezinsky/gavel/internal/config"
	"github.com/abrezinsky/gavel/internal/logger"
	"github.com/abrezinsky/gavel/pkg/roster"
	"github.com/abrezinsky/gavel/web"
)

// ANSI escape codes
const (
	clearLine = "\033[2K"
	moveUp    = "\033[%dA"
	reset     = "\033[0m"
	yellow    = "\033[33m"
	red       = "\033[31m"
	green     = "\033[32m"
	cyan      = "\033[36m"
	bold      = "\033[1m"
)

var (
	version = "dev"
)

// showBanner prints the logo and, unless skipped, brings the gavel down twice
func showBanner(skipStrike bool) {
	width := 46
	border := strings.Repeat("═", width)

	logo := []string{
		"     ____                     _              ",
		"    / ___|  __ _ __   __ ___ | |             ",
		"   | |  _  / _` |\\ \\ / // _ \\| |             ",
		"   | |_| || (_| | \\ V /|  __/| |             ",
		"    \\____| \\__,_|  \\_/  \\___||_|             ",
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		fmt.Printf("  %s║%s%-46s%s║%s\n", cyan, yellow, line, cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n", cyan, border, reset)

	if skipStrike {
		fmt.Print("\n")
		return
	}

	frames := []string{
		"        ▄▄▄▄                 ",
		"        ████══════           ",
		"        ▀▀▀▀                 ",
		"                ▄▄▄▄         ",
		"      ══════════████         ",
		"                ▀▀▀▀  ORDER! ",
	}
	for strike := 0; strike < 2; strike++ {
		for i := 0; i < len(frames); i += 3 {
			for _, line := range frames[i : i+3] {
				fmt.Printf("%s  %s%s%s\n", clearLine, bold, line, reset)
			}
			time.Sleep(150 * time.Millisecond)
			fmt.Printf(moveUp, 3)
		}
	}
	fmt.Print("\n\n\n\n")
}

// cycleLogLevel cycles through debug -> info -> warn -> error
func cycleLogLevel(appLog *logger.SlogLogger) {
	next := map[string]string{
		"DEBUG": "info",
		"INFO":  "warn",
		"WARN":  "error",
		"ERROR": "debug",
	}[appLog.GetLevel().String()]
	if next == "" {
		next = "info"
	}

	appLog.SetLevel(logger.ParseLevel(next))
	fmt.Printf("%sLog level: %s%s%s\n", green, yellow, next, reset)
}

// printKeyboardHelp displays all available keyboard shortcuts
func printKeyboardHelp() {
	fmt.Printf("\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Printf("    %so%s      - Open the committee list in browser\n", cyan, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

// applyFlags lets explicitly set command line flags win over the config
func applyFlags(cfg *config.Config, port int, dbPath, logLevel, rosterURL string) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = port
		case "db":
			cfg.DBPath = dbPath
		case "loglevel":
			cfg.LogLevel = logLevel
		case "roster":
			cfg.RosterURL = rosterURL
		}
	})
}

func main() {
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 8081, "HTTP server port")
	dbPath := flag.String("db", "gavel.db", "SQLite database path")
	logLevel := flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
	rosterURL := flag.String("roster", "", "Roster provider base URL")
	noAnimate := flag.Bool("noanimate", false, "Show logo only, skip the gavel")
	noKeyboard := flag.Bool("nokeyboard", false, "Disable keyboard shortcuts")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Gavel - Model UN committee sessions

Usage:
  gavel [options]

Options:
  -config str    YAML config file (environment GAVEL_* overrides it)
  -port int      HTTP server port (default 8081)
  -db string     SQLite database path (default "gavel.db")
  -loglevel str  Log level: debug, info, warn, error (default "info")
  -roster str    Roster provider base URL
  -noanimate     Show logo only, skip the gavel
  -nokeyboard    Disable keyboard shortcuts
  -version       Show version and exit
  -help          Show this help message

Keyboard Shortcuts (when enabled):
  o              Open the committee list in browser
  h              Toggle HTTP request logging
  l              Cycle log level (debug → info → warn → error)
  q              Quit server
  ?              Show keyboard help

Examples:
  gavel                               # Run on port 8081 with gavel.db
  gavel -port 8080                    # Run on port 8080
  gavel -config /etc/gavel.yaml       # Load settings from a file
  GAVEL_DB_PATH=/data/mun.db gavel    # Settings from the environment
  gavel -roster https://rosters.example.org

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("gavel %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	applyFlags(cfg, *port, *dbPath, *logLevel, *rosterURL)
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	showBanner(*noAnimate)

	appLog := logger.NewWithOptions(os.Stdout, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	// Base URL may be empty; imports store the URL they were given
	rosterClient := roster.NewHTTPClient(cfg.RosterURL, appLog)
	if cfg.RosterToken != "" {
		rosterClient.SetToken(cfg.RosterToken)
	}

	a, err := app.New(appLog, cfg, rosterClient, web.GetTemplatesFS(), web.GetStaticFS())
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		a.Close()
	}()

	pageURL := fmt.Sprintf("http://localhost:%d/", cfg.Port)
	if !*noKeyboard && term.IsTerminal(int(os.Stdin.Fd())) {
		printKeyboardHelp()
		go listenForKeyboard(newConsole(pageURL, appLog, stop))
	} else if !*noKeyboard {
		fmt.Printf("\n%sKeyboard shortcuts disabled: stdin is not a terminal%s\n\n", yellow, reset)
	}

	if err := a.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		a.Close()
		log.Fatal(err)
	}
	a.Close()
}
