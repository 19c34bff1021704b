package nbswave

import (
	"fmt"
	"strings"
)

// ParseError reports malformed or truncated song bytes. No partial Song
// is ever returned alongside one.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("nbs: %s (at byte %d)", e.Msg, e.Offset)
}

// InstrumentSourceError reports an unreadable or corrupt sound source.
// It is fatal to the load call that produced it, but previously loaded
// sources stay usable.
type InstrumentSourceError struct {
	Path string
	Err  error
}

func (e *InstrumentSourceError) Error() string {
	return fmt.Sprintf("instrument source %s: %v", e.Path, e.Err)
}

func (e *InstrumentSourceError) Unwrap() error { return e.Err }

// MissingInstrumentError reports that one or more instruments referenced
// by the song have no resolvable sound, and missing instruments were not
// ignored. Instruments carries the exact missing set.
type MissingInstrumentError struct {
	Instruments []Instrument
}

func (e *MissingInstrumentError) Error() string {
	names := make([]string, len(e.Instruments))
	for i, ins := range e.Instruments {
		if ins.File != "" {
			names[i] = fmt.Sprintf("%s (%s)", ins.Name, ins.File)
		} else {
			names[i] = ins.Name
		}
	}
	return fmt.Sprintf("missing sound files for %d instrument(s): %s",
		len(e.Instruments), strings.Join(names, ", "))
}

// EncoderError reports a failed external encoder invocation.
type EncoderError struct {
	Format string
	Err    error
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncoderError) Unwrap() error { return e.Err }
