// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ctc is the calltree compiler: it parses a behavior-tree source file and
// lowers it into a callback VM program.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/calltree/ctc/bt"
	"github.com/calltree/ctc/cbgen"
	"github.com/calltree/ctc/disasm"
	"github.com/calltree/ctc/validate"
)

// exit codes kept compatible with the original calltree compiler
const (
	exitOK         = 0
	exitArgError   = -1
	exitOpenError  = -2
	exitWriteError = -5
)

type options struct {
	input        string
	output       string
	asmFile      string
	headerFile   string
	endian       string
	listIncludes bool
	treeName     string
	verbose      bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts options

	cmd := &cobra.Command{
		Use:           "ctc -i <file> [-o <file>] [-a <file>] [-h <file>]",
		Short:         "calltree compiler",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&opts.input, "input", "i", "", "Input file. (required)")
	fl.StringVarP(&opts.output, "output", "o", "", "Output file. (optional)")
	fl.StringVarP(&opts.asmFile, "asm", "a", "", "Output text file of generated callback instructions. (optional)")
	fl.StringVarP(&opts.headerFile, "header", "h", "", "Output C header of action/decorator id constants. (optional)")
	fl.StringVarP(&opts.endian, "endian", "e", "little", "Specify endian, \"little\" or \"big\" as argument. (optional)")
	fl.BoolVarP(&opts.listIncludes, "list-includes", "l", false, "Print a list of all files that the input file is dependent of. (optional)")
	fl.StringVarP(&opts.treeName, "tree", "t", "", "Tree to compile. (optional, default is the first tree)")
	fl.BoolVarP(&opts.verbose, "verbose", "v", false, "Print extra funny stuff.")
	fl.BoolP("help", "?", false, "Print this message and exit.")

	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cmd.Usage()
		return exitArgError
	}
	if help, _ := fl.GetBool("help"); help {
		// cobra already printed the usage text
		return exitOK
	}

	return compile(&opts)
}

func compile(opts *options) int {
	log := logrus.New()
	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
		bt.SetDebugMode(true)
		cbgen.SetDebugMode(true)
	}

	var swapEndian bool
	switch opts.endian {
	case "little":
		swapEndian = false
	case "big":
		swapEndian = true
	default:
		fmt.Fprintf(os.Stderr, "error: unknown argument for option -e: %s\n", opts.endian)
		return exitArgError
	}

	if opts.input == "" {
		fmt.Fprintln(os.Stderr, "error: No input file given.")
		return exitArgError
	}

	ctx := bt.NewContext()
	if err := bt.ParseFile(ctx, opts.input); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitArgError
	}
	log.WithFields(logrus.Fields{
		"trees":    len(ctx.Trees),
		"symbols":  len(ctx.Symbols),
		"includes": len(ctx.Includes),
	}).Debug("parsed input")

	if opts.listIncludes {
		for _, inc := range ctx.Includes {
			fmt.Println(inc.Name)
		}
	}

	if opts.headerFile != "" {
		f, err := os.Create(opts.headerFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s(0): error: Unable to open output file %s for writing.\n",
				opts.input, opts.headerFile)
			return exitArgError
		}
		err = printHeader(f, opts.input, ctx)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s(0): error: unspecified error when writing header %s.\n",
				opts.input, opts.headerFile)
			return exitArgError
		}
	}

	if opts.output == "" {
		return exitOK
	}

	if err := validate.Context(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s(0): error: %v\n", opts.input, err)
		return exitArgError
	}

	tree := ctx.Tree(opts.treeName)
	if tree == nil {
		fmt.Fprintf(os.Stderr, "%s(0): error: no tree to compile.\n", opts.input)
		return exitArgError
	}
	log.WithField("tree", tree.Name).Debug("generating")

	p := cbgen.NewProgram()
	if param := ctx.Options.Find("debug_info"); param != nil {
		if dbg, ok := param.AsBool(); ok {
			p.SetGenerateDebugInfo(dbg)
		}
	}

	g := cbgen.NewGenerator(p)
	if err := g.Setup(tree.Root); err != nil {
		g.Teardown(tree.Root)
		fmt.Fprintf(os.Stderr, "%s(0): error: Internal compiler error in setup: %v\n", opts.input, err)
		return exitArgError
	}
	err := g.Generate(tree.Root)
	g.Teardown(tree.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s(0): error: Internal compiler error in generate: %v\n", opts.input, err)
		return exitArgError
	}

	out, err := os.Create(opts.output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s(0): error: Unable to open output file %s for writing.\n",
			opts.input, opts.output)
		return exitOpenError
	}
	err = p.Save(out, swapEndian)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s(0): error: Failed to write output file %s.\n",
			opts.input, opts.output)
		return exitWriteError
	}
	log.WithFields(logrus.Fields{
		"instructions": p.Inst.Count(),
		"bss":          p.Bss.Size(),
	}).Debug("program written")

	asmFile := opts.asmFile
	if asmFile == "" {
		if param := ctx.Options.Find("force_asm"); param != nil {
			if force, ok := param.AsBool(); ok && force {
				asmFile = opts.output + ".asm"
			}
		}
	}
	if asmFile != "" {
		f, err := os.Create(asmFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s(0): error: Unable to open assembly file %s for writing.\n",
				opts.input, asmFile)
			return exitArgError
		}
		err = disasm.Fprint(f, p.Inst.Instructions(), p.Bss.Size(), p.Debug)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s(0): error: Failed to write assembly file %s.\n",
				opts.input, asmFile)
			return exitWriteError
		}
	}

	return exitOK
}
