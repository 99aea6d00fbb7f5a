package translate

import (
	"io"
	"log"
	"sync/atomic"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

var printer atomic.Pointer[message.Printer]

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("simplevm: locale: %v", err)
	}

	Use(locales...)
}

// Use selects the message printer for the given BCP 47 locales.
// With no locales, en-US is used. Safe for concurrent use with From and To.
func Use(locales ...string) {
	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer.Store(message.NewPrinter(message.MatchLanguage(locales...)))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Load().Sprintf(key, args...)
}

// To writes an en-US Fprintf() format, translated, to w.
func To(w io.Writer, key message.Reference, args ...any) (n int, err error) {
	return printer.Load().Fprintf(w, key, args...)
}
