package utils

import (
	"bytes"
	"log"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SafeGo runs a function on its own goroutine and recovers from panics.
type SafeGo struct {
	fn      func()
	onPanic func(recovered interface{})
}

// GoSafe prepares fn to run on a new goroutine. Call Run to start it.
func GoSafe(fn func()) *SafeGo {
	return &SafeGo{fn: fn}
}

// OnPanic sets the handler invoked with the recovered value.
func (s *SafeGo) OnPanic(fn func(recovered interface{})) *SafeGo {
	s.onPanic = fn
	return s
}

func (s *SafeGo) Run() {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if s.onPanic != nil {
					s.onPanic(r)
					return
				}
				log.Printf("[Panic Recovered] %v", r)
			}
		}()
		s.fn()
	}()
}

func ToPointer[T any](value T) *T {
	return &value
}

// CleanToValidUTF8 drops bytes that are not part of a valid UTF-8 sequence.
func CleanToValidUTF8(s string) string {
	var buf bytes.Buffer
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		buf.WriteRune(r)
		i += size
	}
	return buf.String()
}

func CapitalizeSentence(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	runes := []rune(input)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
