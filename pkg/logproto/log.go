// Package logproto decodes and formats the protobuf log records
// carried as Glog frame payloads. The schema is small and stable, so
// records are decoded directly with protowire instead of generated
// bindings.
package logproto

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed reports a payload that does not decode as a log record.
var ErrMalformed = errors.New("logproto: malformed log record")

// Level is the log severity written by the client.
type Level int32

const (
	LevelInfo Level = iota
	LevelDebug
	LevelVerbose
	LevelWarn
	LevelError
)

// String returns the level name. Unknown values render as Info, which
// is what the producer's own tooling does.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "Debug"
	case LevelVerbose:
		return "Verbose"
	case LevelWarn:
		return "Warn"
	case LevelError:
		return "Error"
	default:
		return "Info"
	}
}

// Log is one decoded client log record.
type Log struct {
	Type      int32  // client-defined log category
	Timestamp string // unix milliseconds, as written: a decimal string
	Level     Level
	PID       int32
	TID       string
	Tag       string
	Msg       string
}

// Unmarshal decodes a log record payload. Unknown fields are skipped
// so newer clients stay readable.
func Unmarshal(b []byte) (*Log, error) {
	l := &Log{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			l.Type = int32(v)
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			l.Level = Level(v)
			b = b[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			l.PID = int32(v)
			b = b[n:]
		case typ == protowire.BytesType && (num == 2 || num == 5 || num == 6 || num == 7):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			s := string(v)
			switch num {
			case 2:
				l.Timestamp = s
			case 5:
				l.TID = s
			case 6:
				l.Tag = s
			case 7:
				l.Msg = s
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return l, nil
}

// Time parses the millisecond timestamp. The zero time is returned
// when the field does not parse as an integer.
func (l *Log) Time() time.Time {
	ms, err := strconv.ParseInt(l.Timestamp, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// FormattedTimestamp renders the record time in local time, falling
// back to the raw field when it is not a millisecond timestamp.
func (l *Log) FormattedTimestamp() string {
	t := l.Time()
	if t.IsZero() {
		return l.Timestamp
	}
	return t.Local().Format("2006-01-02 15:04:05.000")
}

// Format renders the record the way the producer's tooling prints it:
//
//	2024-01-02 15:04:05.000 [Info] [tag] {pid:tid} message
func (l *Log) Format() string {
	return fmt.Sprintf("%s [%s] [%s] {%d:%s} %s",
		l.FormattedTimestamp(), l.Level, l.Tag, l.PID, l.TID, l.Msg)
}

func (l *Log) String() string {
	return l.Format()
}
