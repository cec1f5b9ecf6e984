// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ctr loads a compiled behavior-tree program and ticks it with stubbed-out
// actions, printing the result of every tick. Scripted action results make
// it useful for poking at suspension and re-entry behavior on the command
// line.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/calltree/ctc/bt/lookup3"
	"github.com/calltree/ctc/callback"
	"github.com/calltree/ctc/exec"
)

func main() {
	var (
		maxTicks int
		scripts  []string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:           "ctr [options] file.cbtp",
		Short:         "run a compiled behavior tree",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], maxTicks, scripts, verbose)
		},
	}
	cmd.Flags().IntVarP(&maxTicks, "ticks", "n", 64, "maximum number of ticks to run")
	cmd.Flags().StringArrayVarP(&scripts, "result", "r", nil,
		"scripted action results, e.g. -r walk=RUNNING,RUNNING,SUCCESS (repeatable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ctr: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, maxTicks int, scripts []string, verbose bool) error {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	prog, err := exec.MapProgramFile(path)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"instructions": len(prog.Insts),
		"bss":          prog.BssSize,
	}).Debug("program loaded")

	vm, err := exec.NewVM(prog)
	if err != nil {
		return err
	}

	// every action id the program calls gets an always-SUCCESS stub
	for _, id := range actionIDs(prog) {
		id := id
		vm.RegisterAction(id, func(phase callback.Phase) callback.NodeReturn {
			log.WithField("action", fmt.Sprintf("%#08x", id)).Debug(phase)
			return callback.NodeSuccess
		})
	}

	// scripted results override the stubs
	for _, script := range scripts {
		id, results, err := parseScript(script)
		if err != nil {
			return err
		}
		tick := 0
		vm.RegisterAction(id, func(phase callback.Phase) callback.NodeReturn {
			if phase != callback.PhaseExecute {
				return callback.NodeSuccess
			}
			r := results[len(results)-1]
			if tick < len(results) {
				r = results[tick]
			}
			tick++
			return r
		})
	}

	for i := 0; i < maxTicks; i++ {
		r, err := vm.Tick()
		if err != nil {
			return err
		}
		fmt.Printf("tick %d: %s\n", i, r)
		if r != callback.NodeRunning {
			break
		}
	}
	return vm.Destruct()
}

// actionIDs collects every distinct action id referenced by call
// instructions, in first-use order.
func actionIDs(p *exec.Program) []uint32 {
	var ids []uint32
	seen := make(map[uint32]bool)
	for _, inst := range p.Insts {
		switch inst.Op {
		case callback.OpCallConsFun, callback.OpCallExecFun, callback.OpCallDestFun:
			if !seen[inst.A1] {
				seen[inst.A1] = true
				ids = append(ids, inst.A1)
			}
		}
	}
	return ids
}

func parseScript(s string) (uint32, []callback.NodeReturn, error) {
	eq := strings.IndexByte(s, '=')
	if eq < 1 {
		return 0, nil, fmt.Errorf("malformed -r argument %q (want name=RESULT,...)", s)
	}
	id := lookup3.HashLittle(s[:eq])

	var results []callback.NodeReturn
	for _, part := range strings.Split(s[eq+1:], ",") {
		switch strings.ToUpper(strings.TrimSpace(part)) {
		case "SUCCESS":
			results = append(results, callback.NodeSuccess)
		case "FAIL":
			results = append(results, callback.NodeFail)
		case "RUNNING":
			results = append(results, callback.NodeRunning)
		default:
			return 0, nil, fmt.Errorf("unknown result %q in -r argument", part)
		}
	}
	if len(results) == 0 {
		return 0, nil, fmt.Errorf("no results in -r argument %q", s)
	}
	return id, results, nil
}
