package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/defghij/disassembler"
)

func fileLength(filename string) (int64, error) {
	fi, err := os.Stat(filename)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func disasmCmd(c *cli.Context) error {
	args := c.Args()
	if args.Len() < 1 {
		return cli.Exit("Insufficient arguments", 1)
	}
	file := args.First()

	fileLen, err := fileLength(file)
	if err != nil {
		return cli.Exit(err, 1)
	}

	offset := c.Int64("offset")
	if offset < 0 {
		return cli.Exit("offset cannot be before start of file", 1)
	}
	if offset >= fileLen {
		return cli.Exit("offset cannot be past end of file", 1)
	}

	length := fileLen - offset
	if c.IsSet("length") {
		length = c.Int64("length")
		if length < 0 {
			return cli.Exit("length cannot be negative", 1)
		}
		if length > fileLen-offset {
			length = fileLen - offset
		}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return cli.Exit(err, 1)
	}

	var logger *slog.Logger
	if c.Bool("verbose") {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	listing, err := disasm.Sweep(data[offset:offset+length], logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("sweep aborted: %v", err), 1)
	}

	fmt.Fprintln(os.Stdout, listing.String())
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "x86disasm"
	app.Usage = "Linear-sweep disassembler for a subset of 32-bit x86 (IA-32) machine code"
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:      "disasm",
			Aliases:   []string{"d"},
			Usage:     "Disassemble a raw binary file",
			ArgsUsage: "file",
			Action:    disasmCmd,
			Flags: []cli.Flag{
				&cli.Int64Flag{
					Name:  "offset",
					Usage: "byte offset into the file to begin disassembly",
					Value: 0,
				},
				&cli.Int64Flag{
					Name:  "length",
					Usage: "number of bytes to disassemble (default: to end of file)",
				},
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "log rejected candidate rules and invariant violations to stderr",
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
