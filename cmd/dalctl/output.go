package main

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
)

var (
	groupColor   = color.New(color.FgBlue, color.Bold)
	datasetColor = color.New(color.FgGreen)
	attrColor    = color.New(color.FgYellow)
	errColor     = color.New(color.FgRed)
	faintColor   = color.New(color.Faint)
)

func (a *app) writeJSON(w io.Writer, v any) error {
	var (
		out []byte
		err error
	)
	if a.cfg.JSONIndent == "" {
		out, err = json.Marshal(v)
	} else {
		out, err = json.MarshalIndent(v, "", a.cfg.JSONIndent)
	}
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

// jsonValues makes a decoded slice JSON-friendly: complex numbers become
// [re, im] pairs.
func jsonValues(v any) any {
	switch vs := v.(type) {
	case []complex64:
		out := make([][2]float32, len(vs))
		for i, c := range vs {
			out[i] = [2]float32{real(c), imag(c)}
		}
		return out
	case []complex128:
		out := make([][2]float64, len(vs))
		for i, c := range vs {
			out[i] = [2]float64{real(c), imag(c)}
		}
		return out
	}
	return v
}

// printRows prints the elements of slice v, rowLen per line. A rowLen of
// zero prints everything on one line.
func printRows(w io.Writer, v any, rowLen int) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		fmt.Fprintln(w, v)
		return
	}
	n := rv.Len()
	if rowLen <= 0 || rowLen > n {
		rowLen = max(n, 1)
	}
	for lo := 0; lo < n; lo += rowLen {
		hi := min(lo+rowLen, n)
		fmt.Fprintln(w, rv.Slice(lo, hi).Interface())
	}
}
