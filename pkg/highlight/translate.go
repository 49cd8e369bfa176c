package highlight

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/gokts/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// DefaultFallbackFace is used for source ranges outside of any scope.
const DefaultFallbackFace = "unknown"

var (
	ErrFaceStackUnderflow = errors.Base("scope end without a matching scope start")
	ErrUnknownFace        = errors.Base("scope start references an unknown face")
)

// Translator turns highlight events into Kakoune ranges. The zero value is not usable; use
// NewTranslator.
type Translator struct {
	fallbackFace string
	counter      position.ColumnCounter
}

type TranslatorOption func(*Translator)

func WithFallbackFace(face string) TranslatorOption {
	return func(t *Translator) {
		if face != "" {
			t.fallbackFace = face
		}
	}
}

func WithColumnCounter(counter position.ColumnCounter) TranslatorOption {
	return func(t *Translator) {
		if counter != nil {
			t.counter = counter
		}
	}
}

func NewTranslator(opts ...TranslatorOption) *Translator {
	me := &Translator{
		fallbackFace: DefaultFallbackFace,
		counter:      position.CountChars,
	}
	for _, opt := range opts {
		opt(me)
	}
	return me
}

// Translate converts events using the default translator.
func Translate(ctx context.Context, source string, faces []string, events []Event) (Ranges, error) {
	return NewTranslator().Translate(ctx, source, faces, events)
}

func (me *Translator) Translate(ctx context.Context, source string, faces []string, events []Event) (Ranges, error) {
	return me.TranslateSeq(ctx, source, faces, slices.Values(events))
}

// TranslateSeq converts a stream of events into ranges, one per non-empty Source event, in
// stream order. Each call owns its own face stack and position mapper.
func (me *Translator) TranslateSeq(ctx context.Context, source string, faces []string, events iter.Seq[Event]) (Ranges, error) {
	var (
		ranges Ranges
		stack  []string
		index  int
	)

	mapper := position.NewMapper(source, position.WithColumnCounter(me.counter))

	for event := range events {
		switch ev := event.(type) {
		case ScopeStart:
			if ev.Index < 0 || ev.Index >= len(faces) {
				return nil, errors.WrapWith(errors.Errorf("event %d: index %d, %d faces known", index, ev.Index, len(faces)), ErrUnknownFace)
			}
			stack = append(stack, faces[ev.Index])

		case ScopeEnd:
			if len(stack) == 0 {
				return nil, errors.WrapWith(errors.Errorf("event %d", index), ErrFaceStackUnderflow)
			}
			stack = stack[:len(stack)-1]

		case Source:
			if ev.Start == ev.End {
				break
			}

			mapper.Advance(ev.Start)
			start := mapper.Place()

			mapper.Advance(ev.End - 1)
			end := mapper.Place()

			face := me.fallbackFace
			if len(stack) > 0 {
				face = stack[len(stack)-1]
			} else {
				zerolog.Ctx(ctx).Debug().
					Int("event", index).
					Int("start", ev.Start).
					Int("end", ev.End).
					Str("face", face).
					Msg("source range outside of any scope, using fallback face")
			}

			ranges = append(ranges, NewKakHighlightRange(start.Line, start.Col, end.Line, end.Col, strings.ReplaceAll(face, ".", "_")))

		default:
			return nil, errors.Errorf("event %d: unsupported highlight event %T", index, event)
		}

		index++
	}

	return ranges, nil
}
