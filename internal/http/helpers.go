package http

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fintrack/internal/core"
)

// moneyFormatter renders cents with a currency symbol and English digit
// grouping, e.g. "-₱1,234.50".
type moneyFormatter struct {
	printer *message.Printer
	symbol  string
}

func newMoneyFormatter(symbol string) moneyFormatter {
	return moneyFormatter{printer: message.NewPrinter(language.English), symbol: symbol}
}

func (f moneyFormatter) Format(m core.Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + f.symbol + f.printer.Sprintf("%d", cents/100) + fmt.Sprintf(".%02d", cents%100)
}

// percentOf returns part/whole as a rounded percentage clamped to [0, 100].
// Non-zero parts get at least 2 so tiny values stay visible in bar charts.
func percentOf(part, whole int64) int {
	if part < 0 {
		part = -part
	}
	if whole < 0 {
		whole = -whole
	}
	if whole == 0 || part == 0 {
		return 0
	}
	pct := int((part*100 + whole/2) / whole)
	switch {
	case pct < 2:
		return 2
	case pct > 100:
		return 100
	}
	return pct
}

// pathParam returns a decoded chi URL parameter. chi matches on the raw
// path when the request carried escaped characters such as %2F.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}
