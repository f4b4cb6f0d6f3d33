package zerolog

import (
	"github.com/rs/zerolog"
	"github.com/unkn0wn-root/cellarcache"
)

var _ cellarcache.Logger = Logger{}

// Logger adapts a zerolog.Logger. Error values are attached with Err semantics
// so they render as strings.
type Logger struct{ L zerolog.Logger }

func (z Logger) Debug(msg string, f cellarcache.Fields) { emit(z.L.Debug(), msg, f) }
func (z Logger) Info(msg string, f cellarcache.Fields)  { emit(z.L.Info(), msg, f) }
func (z Logger) Warn(msg string, f cellarcache.Fields)  { emit(z.L.Warn(), msg, f) }
func (z Logger) Error(msg string, f cellarcache.Fields) { emit(z.L.Error(), msg, f) }

func emit(e *zerolog.Event, msg string, f cellarcache.Fields) {
	if e == nil {
		return
	}
	for k, v := range f {
		if err, ok := v.(error); ok {
			e = e.AnErr(k, err)
			continue
		}
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}
