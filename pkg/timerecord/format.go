package timerecord

import "fmt"

// SecondsToHMS formats a duration in seconds as HH:MM:SS, the wire format the
// upstream expects for the "time" field on update calls.
func SecondsToHMS(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Hours converts seconds to fractional hours rounded to two decimals, the
// unit run summaries report in.
func Hours(seconds int) float64 {
	return float64(int(float64(seconds)/3600*100+0.5)) / 100
}
