// Command mfrun loads one or more compiled Moonflower modules and runs
// the last one's entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"moonflower/bytecode"
	"moonflower/natives"
	"moonflower/runtime"
)

// consoleModuleName must stay in lockstep with cmd/mfasm's and
// cmd/mfsc's registration of the same module under the same name, so an
// already-assembled/compiled `import console { ... }` reference resolves
// against the identical native table indices registered here.
const consoleModuleName = "console"

// entryRetvalSize reserves the largest scalar width (compiler.maxScalarAlign)
// below the bootstrap frame base, matching the space a caller would leave
// for a CALL's return value.
const entryRetvalSize = 4

func main() {
	app := &cli.App{
		Name:      "mfrun",
		Usage:     "run one or more compiled Moonflower modules",
		ArgsUsage: "<module.mod> [module2.mod ...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable PC bounds checking and runoff reporting"},
			&cli.IntFlag{Name: "stack-size", Usage: "stack size in bytes (0 picks the default)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: mfrun <module.mod> [module2.mod ...]", 1)
	}

	st := runtime.NewState(c.Int("stack-size"), c.Bool("debug"))

	console := natives.NewModule(consoleModuleName, natives.NewConsole(), &st.Machine.Natives)
	if _, err := st.Load(console); err != nil {
		return cli.Exit(err, 1)
	}

	var lastIdx uint16
	for _, path := range c.Args().Slice() {
		mod, err := loadModule(path)
		if err != nil {
			return cli.Exit(err, 1)
		}
		idx, err := st.Load(mod)
		if err != nil {
			return cli.Exit(err, 1)
		}
		lastIdx = idx
	}

	entry, err := st.EntryPoint(lastIdx, "")
	if err != nil {
		return cli.Exit(err, 1)
	}

	// Reserve entryRetvalSize bytes below the bootstrap frame so a
	// scalar-returning entry point's RET-time CPY to a negative offset
	// (compiler/stmt.go's returnValueOffset) lands inside Stack instead
	// of indexing below zero.
	code, reason := st.Run(lastIdx, entry, entryRetvalSize)
	if reason != "" {
		return cli.Exit(fmt.Sprintf("error: %s", reason), 1)
	}
	if code != 0 {
		fmt.Fprintf(os.Stderr, "error: terminated: %d\n", code)
		os.Exit(1)
	}
	return nil
}

func loadModule(path string) (*bytecode.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mod := &bytecode.Module{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	if _, err := mod.ReadFrom(f); err != nil {
		return nil, err
	}
	return mod, nil
}
