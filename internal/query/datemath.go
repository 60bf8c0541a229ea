package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gcbaptista/go-shard-query/mapping"
)

// resolveDateMath resolves a date expression to epoch millis. Expressions are
// an anchor ("now" or a date followed by "||") and a chain of operations:
// "+1d", "-2h", "/d". Rounding goes to the start of the unit, or to its last
// millisecond when roundUp is set. now is only called for "now" anchors.
func resolveDateMath(expr string, now func() (int64, error), roundUp bool) (int64, error) {
	var (
		anchor int64
		ops    string
		err    error
	)
	switch {
	case strings.HasPrefix(expr, "now"):
		anchor, err = now()
		if err != nil {
			return 0, err
		}
		ops = expr[len("now"):]
	case strings.Contains(expr, "||"):
		parts := strings.SplitN(expr, "||", 2)
		anchor, err = mapping.ParseDateMillis(parts[0])
		if err != nil {
			return 0, err
		}
		ops = parts[1]
	default:
		return mapping.ParseDateMillis(expr)
	}
	return applyDateMath(time.UnixMilli(anchor).UTC(), ops, roundUp, expr)
}

func applyDateMath(t time.Time, ops string, roundUp bool, expr string) (int64, error) {
	for i := 0; i < len(ops); {
		op := ops[i]
		i++
		switch op {
		case '/':
			if i >= len(ops) {
				return 0, fmt.Errorf("truncated date math [%s]", expr)
			}
			unit := ops[i]
			i++
			start, next, err := roundDate(t, unit)
			if err != nil {
				return 0, fmt.Errorf("%w in [%s]", err, expr)
			}
			if roundUp {
				t = next.Add(-time.Millisecond)
			} else {
				t = start
			}
		case '+', '-':
			j := i
			for j < len(ops) && ops[j] >= '0' && ops[j] <= '9' {
				j++
			}
			n := 1
			if j > i {
				parsed, err := strconv.Atoi(ops[i:j])
				if err != nil {
					return 0, fmt.Errorf("invalid number in date math [%s]", expr)
				}
				n = parsed
			}
			if j >= len(ops) {
				return 0, fmt.Errorf("missing unit in date math [%s]", expr)
			}
			if op == '-' {
				n = -n
			}
			shifted, err := addDate(t, ops[j], n)
			if err != nil {
				return 0, fmt.Errorf("%w in [%s]", err, expr)
			}
			t = shifted
			i = j + 1
		default:
			return 0, fmt.Errorf("operator not supported for date math [%s]", expr)
		}
	}
	return t.UnixMilli(), nil
}

func addDate(t time.Time, unit byte, n int) (time.Time, error) {
	switch unit {
	case 'y':
		return t.AddDate(n, 0, 0), nil
	case 'M':
		return t.AddDate(0, n, 0), nil
	case 'w':
		return t.AddDate(0, 0, 7*n), nil
	case 'd':
		return t.AddDate(0, 0, n), nil
	case 'h', 'H':
		return t.Add(time.Duration(n) * time.Hour), nil
	case 'm':
		return t.Add(time.Duration(n) * time.Minute), nil
	case 's':
		return t.Add(time.Duration(n) * time.Second), nil
	}
	return t, fmt.Errorf("unit [%c] not supported for date math", unit)
}

// roundDate returns the start of the unit t falls in and the start of the next one.
func roundDate(t time.Time, unit byte) (time.Time, time.Time, error) {
	var start time.Time
	switch unit {
	case 'y':
		start = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	case 'M':
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case 'w':
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
	case 'd':
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case 'h', 'H':
		start = t.Truncate(time.Hour)
	case 'm':
		start = t.Truncate(time.Minute)
	case 's':
		start = t.Truncate(time.Second)
	default:
		return t, t, fmt.Errorf("rounding unit [%c] not supported for date math", unit)
	}
	next, err := addDate(start, unit, 1)
	return start, next, err
}
