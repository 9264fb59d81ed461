// Copyright (c) 2014, Kevin Walsh.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command ted is a minimal embedding host for the ted engine, exercising
// the whole pipeline an embedder would use: load an extensional predicate
// from CSV, derive an intensional one through a rule, run N ticks, and dump
// the result back out as CSV.
package main

import (
	"fmt"
	"os"
	"reflect"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kevinawalsh/ted"
	"github.com/kevinawalsh/ted/tedcsv"
)

type sourceRow struct{ A int }
type doubledRow struct{ B int }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var inputPath, outputPath string
	var ticks int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ted",
		Short: "ted is a minimal embedding host for the ted relational-algebra engine",
		Long: "ted loads an integer column \"a\" from a CSV file into an extensional\n" +
			"predicate, derives its double through one intensional rule, runs N\n" +
			"ticks of the scheduler, and dumps the derived \"b\" column back out as\n" +
			"CSV — a smoke test for embedding the engine in a host program.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(inputPath, outputPath, ticks, verbose)
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "CSV file with a header row containing column \"a\"")
	cmd.Flags().StringVar(&outputPath, "output", "", "CSV file to write the derived \"b\" column to")
	cmd.Flags().IntVar(&ticks, "ticks", 1, "number of scheduler ticks to run")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log each predicate update at debug level")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func run(inputPath, outputPath string, ticks int, verbose bool) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	loader := tedcsv.NewLoader()
	rows, err := tedcsv.Load(loader, in, []tedcsv.ColumnSpec[sourceRow]{
		tedcsv.Column("a", func(r sourceRow) int { return r.A }, func(r *sourceRow, v int) { r.A = v }),
	})
	if err != nil {
		return fmt.Errorf("ted: loading %s: %w", inputPath, err)
	}

	aCol := ted.NewColumn("a", func(r sourceRow) int { return r.A }, func(r *sourceRow, v int) { r.A = v })
	source := ted.NewPredicate[sourceRow]("Source", aCol)
	source.SetInitial(rows...)

	bCol := ted.NewColumn("b", func(r doubledRow) int { return r.B }, func(r *doubledRow, v int) { r.B = v })
	doubled := ted.NewPredicate[doubledRow]("Doubled", bCol)

	aVar := aCol.Var("a")
	double := &ted.FunExpr{
		Op:   "double",
		Args: []ted.Term{aVar},
		Type: reflect.TypeOf(int(0)),
		Fn:   func(args []any) (any, error) { return args[0].(int) * 2, nil },
	}
	doubled.If([]ted.Term{double}, ted.Apply(source, aVar))

	prog := ted.NewProgram(42)
	if verbose {
		log := logrus.New()
		log.SetLevel(logrus.DebugLevel)
		prog.SetLogger(log)
	}
	ted.Register(prog, source)
	ted.Register(prog, doubled)

	for i := 0; i < ticks; i++ {
		if err := prog.Update(); err != nil {
			return fmt.Errorf("ted: tick %d: %w", i, err)
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	outRows := make([]doubledRow, 0, doubled.Table().Len())
	for _, r := range doubled.Table().Rows() {
		outRows = append(outRows, doubled.Table().Get(r))
	}
	outColumns := []tedcsv.ColumnSpec[doubledRow]{
		tedcsv.Column("b", func(r doubledRow) int { return r.B }, func(r *doubledRow, v int) { r.B = v }),
	}
	if err := tedcsv.Dump(loader, out, outColumns, outRows); err != nil {
		return fmt.Errorf("ted: writing %s: %w", outputPath, err)
	}
	fmt.Fprintf(os.Stdout, "ted: wrote %d row(s) to %s\n", len(outRows), outputPath)
	return nil
}
