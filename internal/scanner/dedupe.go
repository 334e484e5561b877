package scanner

import "time"

// dedupe remembers the last answered code so a burst of frames showing the
// same label produces one request
type dedupe struct {
	code string
	at   time.Time
}

func (d *dedupe) recent(code string, now time.Time, window time.Duration) bool {
	if d.code == "" || d.code != code {
		return false
	}
	return now.Sub(d.at) < window
}

func (d *dedupe) remember(code string, at time.Time) {
	d.code = code
	d.at = at
}

func (d *dedupe) reset() {
	*d = dedupe{}
}
