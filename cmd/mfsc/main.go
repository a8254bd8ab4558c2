// Command mfsc compiles a Moonflower script into a loadable module.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"moonflower/compiler"
	"moonflower/natives"
	"moonflower/runtime"
)

// consoleModuleName must stay in lockstep with cmd/mfasm's and
// cmd/mfrun's registration of the same module under the same name, so a
// `console`-importing script resolves against the identical native
// table indices the runtime will register at load time.
const consoleModuleName = "console"

func main() {
	app := &cli.App{
		Name:      "mfsc",
		Usage:     "compile a Moonflower script into a loadable module",
		ArgsUsage: "<input.mf> <output.mod>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "module-name", Usage: "name recorded for diagnostics (defaults to the input file name)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: mfsc <input.mf> <output.mod>", 1)
	}
	inPath, outPath := c.Args().Get(0), c.Args().Get(1)

	name := c.String("module-name")
	if name == "" {
		name = inPath
	}

	src, err := os.ReadFile(inPath)
	if err != nil {
		return cli.Exit(err, 1)
	}

	st := runtime.NewState(0, false)
	console := natives.NewModule(consoleModuleName, natives.NewConsole(), &st.Machine.Natives)
	if _, err := st.Load(console); err != nil {
		return cli.Exit(err, 1)
	}

	mod, msgs := compiler.Compile(name, string(src), st)
	for _, m := range msgs {
		fmt.Fprintln(os.Stderr, m.String())
	}
	if msgs.HasError() {
		return cli.Exit("compilation failed", 1)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer out.Close()

	if _, err := mod.WriteTo(out); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}
