package clock

import (
	"fmt"
	"strconv"
	"strings"
)

// Control is a time control: initial minutes plus per-move increment seconds.
// The zero value means untimed.
type Control struct {
	Minutes   int
	Increment int
}

func (tc Control) Enabled() bool { return tc.Minutes > 0 }

func (tc Control) String() string {
	if !tc.Enabled() {
		return "none"
	}
	return fmt.Sprintf("%d+%d", tc.Minutes, tc.Increment)
}

// ParseControl reads "none", "" or "M+I" (e.g. "5+3"). A bare "M" means no
// increment.
func ParseControl(raw string) (Control, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" || text == "none" || text == "untimed" {
		return Control{}, nil
	}
	minPart, incPart, hasInc := strings.Cut(text, "+")
	minutes, err := strconv.Atoi(strings.TrimSpace(minPart))
	if err != nil || minutes < 0 {
		return Control{}, fmt.Errorf("invalid time control %q", raw)
	}
	tc := Control{Minutes: minutes}
	if hasInc {
		inc, err := strconv.Atoi(strings.TrimSpace(incPart))
		if err != nil || inc < 0 {
			return Control{}, fmt.Errorf("invalid increment in %q", raw)
		}
		tc.Increment = inc
	}
	return tc, nil
}
