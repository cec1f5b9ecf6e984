// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/calltree/ctc/bt"
	"github.com/calltree/ctc/cbgen"
)

func stringOption(opts bt.ParameterList, key string) string {
	param := opts.Find(key)
	if param == nil {
		return ""
	}
	s, _ := param.AsString()
	return s
}

// printHeader emits a C-compatible header with one constant per declared
// action and decorator symbol, so host code can register callbacks under
// the ids the compiled program dispatches on.
func printHeader(w io.Writer, fileName string, ctx *bt.Context) error {
	header := stringOption(ctx.Options, "ctc_h_header")
	footer := stringOption(ctx.Options, "ctc_h_footer")
	symbol := stringOption(ctx.Options, "ctc_h_symbol_prefix")

	_, err := fmt.Fprintf(w,
		"/*\n * This file is auto generated by ctc from %s.\n * Manual edits will be lost when regenerated.\n */\n\n",
		fileName)
	if err != nil {
		return err
	}

	if header != "" {
		if _, err := fmt.Fprintf(w, "%s\n\n", header); err != nil {
			return err
		}
	}

	for _, sym := range ctx.Symbols {
		if !sym.Declared {
			continue
		}
		name := symbol + sym.Name
		if _, err := fmt.Fprintf(w, "const unsigned int %-60s = 0x%08x;\n", name, cbgen.ActionID(sym)); err != nil {
			return err
		}
	}

	if footer != "" {
		if _, err := fmt.Fprintf(w, "\n%s\n", footer); err != nil {
			return err
		}
	}
	return nil
}
