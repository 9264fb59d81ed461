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

// Package tedcsv loads and dumps predicate snapshots as CSV: a header row
// names the columns, each cell is parsed per its declared Go type through a
// pluggable registry, and embedded commas/quotes only need RFC 4180's
// quoted-cell form with doubled-quote escaping — exactly what encoding/csv
// already implements, so this package builds on it rather than hand-rolling
// a quoting scanner.
package tedcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseFunc converts one CSV cell's raw text into a typed value.
type ParseFunc func(string) (any, error)

// FormatFunc renders a typed value back into CSV cell text, for Dump.
type FormatFunc func(any) string

// Loader owns a registry of per-type cell parsers/formatters, seeded with
// defaults for the common scalar types (int, int64, float64, bool, and
// string). Enumerations have no default: a host registers each enumerated
// type, and any other type of its own, with RegisterEnum/RegisterParser
// before calling Load.
type Loader struct {
	parsers    map[reflect.Type]ParseFunc
	formatters map[reflect.Type]FormatFunc
}

// NewLoader constructs a Loader with the default scalar parsers installed.
func NewLoader() *Loader {
	l := &Loader{
		parsers:    make(map[reflect.Type]ParseFunc),
		formatters: make(map[reflect.Type]FormatFunc),
	}
	l.registerDefaults()
	return l
}

func (l *Loader) registerDefaults() {
	l.RegisterParser(reflect.TypeOf(int(0)), func(s string) (any, error) {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "tedcsv: parse int %q", s)
		}
		return int(v), nil
	})
	l.RegisterParser(reflect.TypeOf(int64(0)), func(s string) (any, error) {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "tedcsv: parse int64 %q", s)
		}
		return v, nil
	})
	l.RegisterParser(reflect.TypeOf(float64(0)), func(s string) (any, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "tedcsv: parse float64 %q", s)
		}
		return v, nil
	})
	l.RegisterParser(reflect.TypeOf(false), func(s string) (any, error) {
		v, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, errors.Wrapf(err, "tedcsv: parse bool %q", s)
		}
		return v, nil
	})
	l.RegisterParser(reflect.TypeOf(""), func(s string) (any, error) { return s, nil })

	l.RegisterFormatter(reflect.TypeOf(float64(0)), func(v any) string {
		return strconv.FormatFloat(v.(float64), 'g', -1, 64)
	})
}

// RegisterParser installs (or overrides) the cell parser for t.
func (l *Loader) RegisterParser(t reflect.Type, fn ParseFunc) { l.parsers[t] = fn }

// RegisterFormatter installs (or overrides) the cell formatter for t. Types
// with no registered formatter fall back to fmt.Sprintf("%v", v) in Dump.
func (l *Loader) RegisterFormatter(t reflect.Type, fn FormatFunc) { l.formatters[t] = fn }

// RegisterEnum installs a case-insensitive parser (and a formatter that
// writes one of the names given for each value; which one is not defined
// when several names map to the same value) for an enumerated type T.
func RegisterEnum[T comparable](l *Loader, names map[string]T) {
	byLower := make(map[string]T, len(names))
	display := make(map[T]string, len(names))
	for name, v := range names {
		byLower[strings.ToLower(name)] = v
		if _, ok := display[v]; !ok {
			display[v] = name
		}
	}
	var zero T
	t := reflect.TypeOf(zero)
	l.RegisterParser(t, func(s string) (any, error) {
		v, ok := byLower[strings.ToLower(strings.TrimSpace(s))]
		if !ok {
			return nil, errors.Errorf("tedcsv: unrecognized enum literal %q", s)
		}
		return v, nil
	})
	l.RegisterFormatter(t, func(v any) string { return display[v.(T)] })
}

// ColumnSpec binds one CSV header name to a Go row type's field, mirroring
// the host-facing ted.Column[Row,T] project/assign pair: Get extracts the
// column's current value (used by Dump), Set writes a parsed value into a
// row being assembled (used by Load).
type ColumnSpec[Row any] struct {
	Name string
	Type reflect.Type
	Get  func(Row) any
	Set  func(*Row, any)
}

// Column declares a typed CSV column named name over Row, analogous to
// ted.NewColumn but against the generic any-typed cell Load/Dump operate on.
func Column[Row any, T any](name string, get func(Row) T, set func(*Row, T)) ColumnSpec[Row] {
	var zero T
	return ColumnSpec[Row]{
		Name: name,
		Type: reflect.TypeOf(zero),
		Get:  func(r Row) any { return get(r) },
		Set:  func(r *Row, v any) { set(r, v.(T)) },
	}
}

// Load reads a CSV header row, matches it against columns by name (order in
// the file need not match declaration order), then parses every subsequent
// record into a Row via each column's registered parser.
func Load[Row any](l *Loader, r io.Reader, columns []ColumnSpec[Row]) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.Wrap(err, "tedcsv: read header")
	}

	fieldOf := make(map[string]int, len(header))
	for i, name := range header {
		fieldOf[strings.TrimSpace(name)] = i
	}
	specByField := make([]*ColumnSpec[Row], len(header))
	for i := range columns {
		col := &columns[i]
		idx, ok := fieldOf[col.Name]
		if !ok {
			return nil, errors.Errorf("tedcsv: header is missing column %q", col.Name)
		}
		specByField[idx] = col
		if _, ok := l.parsers[col.Type]; !ok {
			return nil, errors.Errorf("tedcsv: no parser registered for column %q (type %s)", col.Name, col.Type)
		}
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "tedcsv: read record")
		}
		var row Row
		for i, cell := range record {
			if i >= len(specByField) || specByField[i] == nil {
				continue
			}
			col := specByField[i]
			parser := l.parsers[col.Type]
			v, err := parser(cell)
			if err != nil {
				return nil, errors.Wrapf(err, "tedcsv: column %q", col.Name)
			}
			col.Set(&row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Dump writes rows as a CSV with a header row of column names, in the
// declared column order, for producing a snapshot of a table's rows.
func Dump[Row any](l *Loader, w io.Writer, columns []ColumnSpec[Row], rows []Row) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Name
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "tedcsv: write header")
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			v := col.Get(row)
			if fmtFn, ok := l.formatters[col.Type]; ok {
				record[i] = fmtFn(v)
			} else {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "tedcsv: write record")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "tedcsv: flush")
}
