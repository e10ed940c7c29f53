package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tsawler/pagemerge/internal/config"
	"github.com/tsawler/pagemerge/internal/logger"
)

func main() {
	// scan command
	scanSet := flag.NewFlagSet("scan", flag.ExitOnError)
	scanConfig := scanSet.String("config", "", "Path to a YAML config file")
	scanWorkers := scanSet.Int("workers", 0, "Pages merged concurrently (default: logical CPUs)")
	scanBatch := scanSet.Int("batch", 0, "Pages fetched per query (default: 4 per worker)")
	scanPolicy := scanSet.String("policy", "", "Path to a YAML merge plan")
	scanOnce := scanSet.Bool("once", false, "Run a single scan and exit")
	scanInterval := scanSet.Duration("interval", 0, "Pause between scans in continuous mode")
	scanMetrics := scanSet.String("metrics", "", "Serve Prometheus metrics on this address, e.g. :9102")
	scanSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s %s [-config=pagemerge.yaml] [-workers=N] [-batch=N] [-policy=plan.yaml] [-once] [-interval=1m] [-metrics=:9102]\n\n", os.Args[0], os.Args[1])
		scanSet.PrintDefaults()
	}

	// page command
	pageSet := flag.NewFlagSet("page", flag.ExitOnError)
	pagePolicy, pageMargin := planFlags(pageSet)
	pageSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s %s [-policy=plan.yaml] [-margin=10] page.json ...\n\n", os.Args[0], os.Args[1])
		pageSet.PrintDefaults()
	}

	// annotate command
	annotateSet := flag.NewFlagSet("annotate", flag.ExitOnError)
	annotateOut := annotateSet.String("o", "", "Output PNG (default: <image>.merged.png)")
	annotateMembers := annotateSet.Bool("members", true, "Outline member detections")
	annotateLabels := annotateSet.Bool("labels", true, "Label objects with their class")
	annotatePolicy, annotateMargin := planFlags(annotateSet)
	annotateSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s %s [-o=out.png] [-members=false] [-labels=false] [-policy=plan.yaml] [-margin=10] image.png page.json\n\n", os.Args[0], os.Args[1])
		annotateSet.PrintDefaults()
	}

	// html command
	htmlSet := flag.NewFlagSet("html", flag.ExitOnError)
	htmlPolicy, htmlMargin := planFlags(htmlSet)
	htmlSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s %s [-policy=plan.yaml] [-margin=10] page.json\n\n", os.Args[0], os.Args[1])
		htmlSet.PrintDefaults()
	}

	// retrieval command
	retrievalSet := flag.NewFlagSet("retrieval", flag.ExitOnError)
	retrievalImage := retrievalSet.String("image", "", "Page image used to attach PNG crops")
	retrievalWidth := retrievalSet.Int("max-width", 0, "Scale crops down to this width")
	retrievalPolicy, retrievalMargin := planFlags(retrievalSet)
	retrievalSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s %s [-image=page.png] [-max-width=N] [-policy=plan.yaml] [-margin=10] page.json\n\n", os.Args[0], os.Args[1])
		retrievalSet.PrintDefaults()
	}

	// reset command
	resetSet := flag.NewFlagSet("reset", flag.ExitOnError)
	resetConfig := resetSet.String("config", "", "Path to a YAML config file")
	resetSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s %s [-config=pagemerge.yaml] page-id ...\n\n", os.Args[0], os.Args[1])
		resetSet.PrintDefaults()
	}

	// migrate command
	migrateSet := flag.NewFlagSet("migrate", flag.ExitOnError)
	migrateConfig := migrateSet.String("config", "", "Path to a YAML config file")
	migrateSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s %s [-config=pagemerge.yaml]\n\n", os.Args[0], os.Args[1])
		migrateSet.PrintDefaults()
	}

	// config command
	configSet := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := configSet.String("config", "", "Path to a YAML config file")
	configSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s %s [-config=pagemerge.yaml]\n\n", os.Args[0], os.Args[1])
		configSet.PrintDefaults()
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <command> [arguments]\n\nThe commands are:\n\n"+
			strings.Repeat("\t%v\n", 8)+"\n", os.Args[0],
			"scan     \t merge every postprocessed, unmerged page in the database",
			"page     \t merge page JSON files and print the result",
			"annotate \t draw merged objects on the page image",
			"html     \t render a merged page as HTML",
			"retrieval\t print the retrieval records of a merged page",
			"reset    \t clear the merged flag so pages are merged again",
			"migrate  \t create the pages table",
			"config   \t print the effective configuration",
		)
		flag.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "scan":
		scanSet.Parse(os.Args[2:])
		cfg := loadConfig(*scanConfig)
		if *scanWorkers > 0 {
			cfg.Workers = *scanWorkers
		}
		if *scanBatch > 0 {
			cfg.BatchSize = *scanBatch
		}
		if *scanPolicy != "" {
			cfg.PolicyPath = *scanPolicy
		}
		if *scanInterval > 0 {
			cfg.Interval = *scanInterval
		}
		if *scanMetrics != "" {
			cfg.MetricsAddr = *scanMetrics
		}
		err = scanCommand(cfg, *scanOnce)
	case "page":
		pageSet.Parse(os.Args[2:])
		if pageSet.NArg() < 1 {
			pageSet.Usage()
			os.Exit(1)
		}
		err = pageCommand(pageConfig(*pagePolicy, *pageMargin), pageSet.Args())
	case "annotate":
		annotateSet.Parse(os.Args[2:])
		if annotateSet.NArg() != 2 {
			annotateSet.Usage()
			os.Exit(1)
		}
		err = annotateCommand(pageConfig(*annotatePolicy, *annotateMargin), annotateSet.Arg(0), annotateSet.Arg(1), *annotateOut, *annotateMembers, *annotateLabels)
	case "html":
		htmlSet.Parse(os.Args[2:])
		if htmlSet.NArg() != 1 {
			htmlSet.Usage()
			os.Exit(1)
		}
		err = htmlCommand(pageConfig(*htmlPolicy, *htmlMargin), htmlSet.Arg(0))
	case "retrieval":
		retrievalSet.Parse(os.Args[2:])
		if retrievalSet.NArg() != 1 {
			retrievalSet.Usage()
			os.Exit(1)
		}
		err = retrievalCommand(pageConfig(*retrievalPolicy, *retrievalMargin), retrievalSet.Arg(0), *retrievalImage, *retrievalWidth)
	case "reset":
		resetSet.Parse(os.Args[2:])
		if resetSet.NArg() < 1 {
			resetSet.Usage()
			os.Exit(1)
		}
		err = resetCommand(loadConfig(*resetConfig), resetSet.Args())
	case "migrate":
		migrateSet.Parse(os.Args[2:])
		err = migrateCommand(loadConfig(*migrateConfig))
	case "config":
		configSet.Parse(os.Args[2:])
		err = configCommand(loadConfig(*configPath))
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// planFlags registers the merge plan flags shared by the page file commands
func planFlags(set *flag.FlagSet) (*string, *float64) {
	policyPath := set.String("policy", "", "Path to a YAML merge plan (default: PAGEMERGE_POLICY or the built-in plan)")
	margin := set.Float64("margin", 0, "Adjacency margin of the built-in plan (default 10)")
	return policyPath, margin
}

// pageConfig loads environment configuration for the page file commands and
// applies their plan flags
func pageConfig(policyPath string, margin float64) config.Config {
	cfg := loadConfig("")
	if policyPath != "" {
		cfg.PolicyPath = policyPath
	}
	if margin > 0 {
		cfg.Margin = margin
	}
	return cfg
}

// loadConfig reads file and environment configuration and starts the logger
func loadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	initLogger(cfg)
	return cfg
}

func initLogger(cfg config.Config) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.Init(level, os.Stderr, cfg.LogColor)
}

// elapsed formats a duration for log lines
func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
