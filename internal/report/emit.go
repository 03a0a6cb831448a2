// Package report writes snapshots as a static text report, indented JSON or
// newline-delimited JSON. Renderers only read snapshots.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Dicklesworthstone/perfmon/internal/model"
)

// Format is an output encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatNDJSON
)

// FormatFor picks the format from the CLI switches. NDJSON wins over JSON.
func FormatFor(jsonOut, ndjson bool) Format {
	switch {
	case ndjson:
		return FormatNDJSON
	case jsonOut:
		return FormatJSON
	default:
		return FormatText
	}
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatNDJSON:
		return "ndjson"
	default:
		return "text"
	}
}

const clearScreen = "\033[2J\033[H"

// Emitter writes successive snapshots to one destination.
type Emitter struct {
	w      io.Writer
	format Format
	text   TextOptions
	clear  bool
}

// NewEmitter returns an emitter. clear only applies to the text format and
// wipes the terminal before each report.
func NewEmitter(w io.Writer, format Format, text TextOptions, clear bool) *Emitter {
	return &Emitter{w: w, format: format, text: text, clear: clear && format == FormatText}
}

func (e *Emitter) Emit(s model.Snapshot) error {
	var out []byte
	switch e.format {
	case FormatJSON:
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("report: encode json: %w", err)
		}
		out = append(b, '\n')
	case FormatNDJSON:
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("report: encode ndjson: %w", err)
		}
		out = append(b, '\n')
	default:
		txt := Text(s, e.text)
		if e.clear {
			txt = clearScreen + txt
		}
		out = []byte(txt)
	}
	if _, err := e.w.Write(out); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}
