package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/randomization/listgen"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/services"
)

func main() {
	var (
		file  string
		limit int
		seed  uint64
	)
	flag.StringVar(&file, "file", "", "scheme definition YAML (required)")
	flag.IntVar(&limit, "limit", services.DefaultPreviewLimit, "number of entries to print")
	flag.Uint64Var(&seed, "seed", 0, "seed for a reproducible list (0 uses the secure RNG)")
	flag.Parse()

	if file == "" {
		flag.Usage()
		os.Exit(2)
	}
	f, err := os.Open(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", file, err)
		os.Exit(1)
	}
	defer f.Close()

	s, err := loadScheme(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	rng := listgen.NewSecureRNG()
	if seed != 0 {
		rng = listgen.NewSeededRNG(seed)
	}
	preview, err := listgen.New(rng).Preview(s, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(preview); err != nil {
		fmt.Fprintf(os.Stderr, "encode preview: %v\n", err)
		os.Exit(1)
	}
}
