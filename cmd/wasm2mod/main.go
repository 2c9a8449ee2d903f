// Program wasm2mod drives the emitter standalone: it maps command-line
// flags 1:1 onto ir.Options and writes the resulting module to a file or
// stdout. Grounded on gate-computer-wag/cmd/wasys's flag/log-based CLI
// skeleton; unlike wasys, there is no native runner here, so none of its
// mmap/syscall machinery applies — only the options-parsing and verbose-
// logging idiom carries over.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/leaningtech/llvm-duetto/internal/scenario"
	"github.com/leaningtech/llvm-duetto/ir"
	"github.com/leaningtech/llvm-duetto/module"
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Emits one of the built-in demo modules (see -scenario); an upstream\n")
		fmt.Fprintf(os.Stderr, "compiler frontend, not provided by this repo, is what ordinarily\n")
		fmt.Fprintf(os.Stderr, "supplies the ir.Module an emitter build would consume instead.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	var (
		verbose       = false
		out           = ""
		wat           = false
		sc            = "s2"
		heapSizeMiB   = uint(1)
		useWasmLoader = false
		prettyCode    = false
		useCFGLegacy  = false
		sharedMemory  = false
		noGrowMemory  = true
		exportedTable = false
		avoidTraps    = false
		wasmBuiltins  = false
	)

	flag.BoolVar(&verbose, "v", verbose, "verbose logging of globalization decisions and section sizes")
	flag.StringVar(&out, "o", out, "output file (default: stdout)")
	flag.BoolVar(&wat, "wat", wat, "emit WAT text instead of the Wasm binary")
	flag.StringVar(&sc, "scenario", sc, "built-in demo module: s1 (empty i32 return) or s2 (add two i32 params)")
	flag.UintVar(&heapSizeMiB, "heapsize", heapSizeMiB, "linear memory size in MiB")
	flag.BoolVar(&useWasmLoader, "wasmloader", useWasmLoader, "resolve grow_memory via an imported loader instead of memory.grow")
	flag.BoolVar(&prettyCode, "prettycode", prettyCode, "emit a Name section")
	flag.BoolVar(&useCFGLegacy, "cfglegacy", useCFGLegacy, "use the relooper instead of the stackifier")
	flag.BoolVar(&sharedMemory, "sharedmemory", sharedMemory, "declare the memory as shared")
	flag.BoolVar(&noGrowMemory, "nogrowmemory", noGrowMemory, "declare min==max pages (memory never grows)")
	flag.BoolVar(&exportedTable, "exportedtable", exportedTable, "export the function table")
	flag.BoolVar(&avoidTraps, "avoidwasmtraps", avoidTraps, "insert pre-checks to avoid implicit wasm traps")
	flag.BoolVar(&wasmBuiltins, "wasmbuiltins", wasmBuiltins, "call math builtins unpromoted through the function table instead of as JS builtin imports")
	flag.Parse()

	var mod *ir.Module
	switch sc {
	case "s1":
		mod = scenario.EmptyReturn()
	case "s2":
		mod = scenario.AddTwoParams()
	default:
		log.Fatalf("unknown -scenario %q (want s1 or s2)", sc)
	}

	mod.Options = ir.Options{
		HeapSizeMiB:    uint32(heapSizeMiB),
		UseWasmLoader:  useWasmLoader,
		PrettyCode:     prettyCode,
		UseCFGLegacy:   useCFGLegacy,
		SharedMemory:   sharedMemory,
		NoGrowMemory:   noGrowMemory,
		ExportedTable:  exportedTable,
		AvoidWasmTraps: avoidTraps,
	}
	if wasmBuiltins {
		mod.Options.MathMode = ir.MathModeWasmBuiltins
	}

	logf := func(string, ...interface{}) {}
	if verbose {
		logf = log.Printf
	}

	var payload []byte
	if wat {
		mod.Options.Mode = ir.EmitWast
		text, err := module.EmitText(mod)
		if err != nil {
			log.Fatal(err)
		}
		payload = []byte(text)
	} else {
		mod.Options.Mode = ir.EmitWasm
		bin, err := module.EmitVerbose(mod, logf)
		if err != nil {
			log.Fatal(err)
		}
		payload = bin
	}

	if out == "" {
		os.Stdout.Write(payload)
		return
	}
	if err := ioutil.WriteFile(out, payload, 0o644); err != nil {
		log.Fatal(err)
	}
}
