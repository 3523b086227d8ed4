// Package main provides the entry point for rvhart.
// rvhart runs a RISC-V ELF binary on a single emulated hart.
package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/rvhart/driver"
	"github.com/sarchlab/rvhart/loader"
	"github.com/sarchlab/rvhart/mem"
)

var (
	configPath = flag.String("config", "", "Path to a hart configuration YAML file")
	driverName = flag.String("driver", "", "Driver: simple, block, icache, or threaded (overrides config)")
	maxTicks   = flag.Uint64("max-ticks", 0, "Stop after this many ticks (0 = no limit)")
	verbose    = flag.Bool("v", false, "Verbose output")
)

// hartConfig is the YAML shape of a hart configuration file.
type hartConfig struct {
	Driver               string `yaml:"driver"`
	XLen                 int    `yaml:"xlen"`
	Extensions           string `yaml:"extensions"`
	TranslationCacheBits uint   `yaml:"translationCacheBits"`
	SkipBusForFetches    bool   `yaml:"skipBusForFetches"`
	MaxBlockLength       int    `yaml:"maxBasicBlockLength"`
	BlockCacheBits       uint   `yaml:"bbCacheBits"`
	NumNextBlocks        int    `yaml:"numNextBlocks"`
	FetchThreadDepth     int    `yaml:"fetchThreadDepth"`
}

func defaultHartConfig() hartConfig {
	return hartConfig{
		Driver:               "block",
		XLen:                 64,
		Extensions:           "imacsu",
		TranslationCacheBits: 9,
		SkipBusForFetches:    true,
		MaxBlockLength:       32,
		BlockCacheBits:       12,
		NumNextBlocks:        2,
		FetchThreadDepth:     8,
	}
}

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rvhart [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	programPath := flag.Arg(0)

	cfg := defaultHartConfig()
	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing config: %v\n", err)
			os.Exit(1)
		}
	}
	if *driverName != "" {
		cfg.Driver = *driverName
	}

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}
	if prog.XLenBits != cfg.XLen {
		cfg.XLen = prog.XLenBits
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
		fmt.Printf("Driver: %s, XLEN: %d, extensions: %s\n", cfg.Driver, cfg.XLen, cfg.Extensions)
	}

	memory := mem.NewMemory()
	prog.Place(memory)

	opts := []driver.Option{
		driver.WithXLen(cfg.XLen),
		driver.WithExtensions(cfg.Extensions),
		driver.WithResetVector(prog.EntryPoint),
		driver.WithTranslationCacheBits(cfg.TranslationCacheBits),
		driver.WithSkipBusForFetches(cfg.SkipBusForFetches),
		driver.WithMaxBlockLength(cfg.MaxBlockLength),
		driver.WithBlockCacheBits(cfg.BlockCacheBits),
		driver.WithNumNextBlocks(cfg.NumNextBlocks),
		driver.WithFetchThreadDepth(cfg.FetchThreadDepth),
	}

	hart, err := buildDriver(cfg.Driver, memory, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error constructing hart: %v\n", err)
		os.Exit(1)
	}
	if closer, ok := hart.(interface{ Close() }); ok {
		defer closer.Close()
	}

	hart.BeforeFirstTick()

	var ticks, retired uint64
	for {
		retired += uint64(hart.Tick())
		ticks++
		if *maxTicks > 0 && ticks >= *maxTicks {
			break
		}
	}

	fmt.Printf("Ticks: %d, instructions retired: %d\n", ticks, retired)
}

func buildDriver(name string, memory *mem.Memory, opts []driver.Option) (driver.Tickable, error) {
	// The bus and the fetch-skipping memory target are the same RAM
	// here; a front end with devices would pass a distinct bus.
	switch name {
	case "simple":
		return driver.NewSimpleHart(memory, memory, opts...)
	case "block":
		return driver.NewBlockHart(memory, memory, opts...)
	case "icache":
		return driver.NewICacheHart(memory, memory, opts...)
	case "threaded":
		return driver.NewThreadedHart(memory, memory, opts...)
	}
	return nil, fmt.Errorf("unknown driver %q", name)
}
