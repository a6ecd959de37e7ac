/*
Package main implements the spellserve server and commandline interface.

Spellserve answers spelling-correction queries against a persistent
vocabulary of word and word-pair frequencies. Corrections combine a
keyboard-aware weighted edit distance, transliteration and layout-swap
candidates, and a splitter/merger that re-segments multi-token queries,
ranked with unigram and bigram statistics.

# Server Mode

The default mode reads msgpack requests on stdin and answers on stdout, for
editor and search-frontend integrations. See pkg/server for the protocol.

# CLI Mode

With -c the process runs an interactive shell: type a query to see its
corrections, or use the add/remove commands to edit the vocabulary.

# Config

Runtime configuration is managed via a config.toml file, which supports
settings for the server, the correction engine and the backing store. A
default configuration is created automatically if one does not exist.
*/
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/spellserve/internal/logger"
	"github.com/bastiangx/spellserve/pkg/config"
	"github.com/bastiangx/spellserve/pkg/server"
	"github.com/bastiangx/spellserve/pkg/speller"
	"github.com/bastiangx/spellserve/pkg/spelling"
	"github.com/bastiangx/spellserve/pkg/store"
)

const (
	Version = "0.1.0"
	AppName = "spellserve"
	gh      = "https://github.com/bastiangx/spellserve"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

func openStore(cfg *config.Config) (store.Store, func(), error) {
	if cfg.Store.Backend == "memory" {
		return store.NewMemStore(), func() {}, nil
	}
	ps, err := store.OpenPebble(cfg.Store.Dir)
	if err != nil {
		return nil, nil, err
	}
	return ps, func() { ps.Close() }, nil
}

func indexVariant(cfg *config.Config) spelling.IndexVariant {
	if cfg.Spell.Index == "fastss" {
		return spelling.IndexFastSS
	}
	return spelling.IndexNGram
}

// main wires config, store, table and speller together and hands control to
// the server loop or the interactive CLI.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	configFile := flag.String("config", "config.toml", "Path to custom config.toml file")
	storeDir := flag.String("data", "", "Directory for the spelling store (overrides config)")
	debugMode := flag.Bool("v", false, "Toggle verbose mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	language := flag.String("lang", "", "Language for keyboard layout and transliteration (overrides config)")
	distance := flag.Int("d", -1, "Maximum edit distance (overrides config)")

	flag.Parse()

	if *showVersion {
		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    false,
			ReportTimestamp: false,
		})

		styles := log.DefaultStyles()
		styles.Values["version"] = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
		styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
		logger.SetStyles(styles)

		logger.Print("")
		logger.Print("[spellserve] Spelling suggestions for your search box!")
		logger.Print("", "version", Version)
		logger.Print("use --help to see available options")
		logger.Print("Find out more at", "gh", gh)
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
	}
	log.SetDefault(logger.New(AppName))

	cfg, err := config.InitConfig(*configFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *storeDir != "" {
		cfg.Store.Dir = *storeDir
	}
	if *language != "" {
		cfg.Spell.Language = *language
	}
	if *distance >= 0 {
		cfg.Spell.MaxDistance = *distance
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer closeStore()

	table := spelling.NewTable(st, indexVariant(cfg))
	sp := speller.New(table, speller.Options{
		MaxDistance: cfg.Spell.MaxDistance,
		Language:    cfg.Spell.Language,
		CacheSize:   cfg.Spell.CacheSize,
	})

	if *cliMode {
		runCLI(table, sp)
		return
	}

	srv := server.New(table, sp, cfg, os.Stdin, os.Stdout)
	if err := srv.Start(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// runCLI is a minimal interactive shell over the engine.
func runCLI(table *spelling.Table, sp *speller.Speller) {
	fmt.Println("spellserve interactive mode")
	fmt.Println("  <words>              suggest corrections")
	fmt.Println("  :add <word> [freq]   add a word")
	fmt.Println("  :pair <a> <b> [freq] add a word pair")
	fmt.Println("  :rm <word> [freq]    remove a word")
	fmt.Println("  :flush               commit pending writes")
	fmt.Println("  :quit                exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case ":quit", ":q":
			return
		case ":flush":
			if err := table.Flush(); err != nil {
				log.Errorf("flush: %v", err)
			}
		case ":add", ":rm", ":pair":
			cliWrite(table, fields)
		default:
			words, err := sp.Suggest(fields, "")
			switch {
			case err != nil:
				log.Errorf("suggest: %v", err)
			case len(words) == 0:
				fmt.Println("(no change)")
			default:
				fmt.Println(strings.Join(words, " "))
			}
		}
	}
}

func cliWrite(table *spelling.Table, fields []string) {
	freq := uint64(1)
	wordCount := len(fields) - 1

	if last := fields[len(fields)-1]; wordCount > 1 {
		if parsed, err := strconv.ParseUint(last, 10, 64); err == nil {
			freq = parsed
			wordCount--
		}
	}

	var err error
	switch {
	case fields[0] == ":pair" && wordCount >= 2:
		err = table.AddWordPair(fields[1], fields[2], freq, "")
	case fields[0] == ":add" && wordCount >= 1:
		err = table.AddWord(fields[1], freq, "")
	case fields[0] == ":rm" && wordCount >= 1:
		err = table.RemoveWord(fields[1], freq, "")
	default:
		log.Error("not enough arguments")
		return
	}
	if err != nil {
		log.Errorf("write: %v", err)
	}
}
