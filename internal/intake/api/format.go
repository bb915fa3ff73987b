package api

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var spanish = message.NewPrinter(language.Spanish)

var (
	weekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	months   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
		"agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// FormatRemaining renders a countdown the way the form shows it:
// "N días y M horas" above a day, "N horas y M minutos" above an hour,
// otherwise "N minutos". Units are truncated, not rounded.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int64(d / (24 * time.Hour))
	hours := int64(d % (24 * time.Hour) / time.Hour)
	minutes := int64(d % time.Hour / time.Minute)

	switch {
	case days > 0:
		return spanish.Sprintf("%d %s y %d %s", days, plural(days, "día"), hours, plural(hours, "hora"))
	case hours > 0:
		return spanish.Sprintf("%d %s y %d %s", hours, plural(hours, "hora"), minutes, plural(minutes, "minuto"))
	default:
		return spanish.Sprintf("%d %s", minutes, plural(minutes, "minuto"))
	}
}

func plural(n int64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// FormatDisplayDate renders t in loc as "jueves, 6 de noviembre de 2025, 01:00".
func FormatDisplayDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return fmt.Sprintf("%s, %d de %s de %d, %02d:%02d",
		weekdays[t.Weekday()], t.Day(), months[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}
