package tablelog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
)

// #region encode
// Encode writes r in the stable field order:
// name, environment, steps, states, actions, rule, gamma, alpha, schedule,
// decay, min_alpha, initial_policy, initial_bias, reward, one
// "q s a estimate visits" line per entry, then "end".
//
// Counters, rewards, estimates and visits are written at a fixed width, so
// the encoded size of a table does not change as it learns.
func Encode(w io.Writer, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "name %s\n", r.Name)
	fmt.Fprintf(bw, "environment %s\n", oneLine(r.Environment))
	fmt.Fprintf(bw, "steps %s\n", formatCount(uint64(max(r.Steps, 0))))
	fmt.Fprintf(bw, "states %d\n", r.States)
	fmt.Fprintf(bw, "actions %d\n", r.Actions)
	fmt.Fprintf(bw, "rule %s\n", r.Rule)
	fmt.Fprintf(bw, "gamma %s\n", formatFloat(r.Gamma))
	fmt.Fprintf(bw, "alpha %s\n", formatFloat(r.Alpha))
	fmt.Fprintf(bw, "schedule %s\n", oneLine(r.Schedule))
	fmt.Fprintf(bw, "decay %s\n", formatFloat(r.Decay))
	fmt.Fprintf(bw, "min_alpha %s\n", formatFloat(r.MinAlpha))
	fmt.Fprintf(bw, "initial_policy %d\n", r.InitialPolicy)
	fmt.Fprintf(bw, "initial_bias %s\n", formatFloat(r.InitialBias))
	fmt.Fprintf(bw, "reward %s\n", formatFloat(r.TotalReward))
	for _, e := range r.Entries {
		fmt.Fprintf(bw, "q %d %d %s %s\n", e.State, e.Action, formatFloat(e.Estimate), formatCount(uint64(e.Visits)))
	}
	fmt.Fprintln(bw, "end")
	return bw.Flush()
}

// Size returns the exact number of bytes Encode writes for r.
func Size(r Record) (int64, error) {
	var c countingWriter
	if err := Encode(&c, r); err != nil {
		return 0, err
	}
	return c.n, nil
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

const (
	floatWidth = 24 // "-d.dddddddddddddddde-ddd", 17 significant digits round-trip a float64
	countWidth = 10 // max uint32
)

func formatFloat(v float64) string {
	return fmt.Sprintf("%*s", floatWidth, strconv.FormatFloat(v, 'e', 16, 64))
}

func formatCount(n uint64) string {
	return fmt.Sprintf("%*d", countWidth, n)
}

func oneLine(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
// #endregion encode

// #region decode
// DecodeAll reads every complete record in r. A record cut short by an
// interrupted append never reaches its "end" line and is dropped, whether
// it is the last one or is followed by a later record. A malformed line in
// a record that does reach "end" is ErrCorrupt.
func DecodeAll(r io.Reader) ([]Record, error) {
	var (
		records []Record
		cur     *Record
		bad     error // first malformed line of cur
		lineNo  int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		key, val, _ := strings.Cut(line, " ")

		if key == "name" {
			cur, bad = &Record{Name: val}, nil
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("%w: line %d: %q before name", ErrCorrupt, lineNo, key)
		}
		if err := decodeField(cur, key, val); err != nil {
			if bad == nil {
				bad = fmt.Errorf("%w: line %d: %v", ErrCorrupt, lineNo, err)
			}
			continue
		}
		if key == "end" {
			if bad != nil {
				return nil, bad
			}
			if err := cur.Validate(); err != nil {
				return nil, fmt.Errorf("%w: record ending line %d: %v", ErrCorrupt, lineNo, err)
			}
			records = append(records, *cur)
			cur = nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan log: %w", err)
	}
	return records, nil
}

// Decode returns the last complete record in r.
func Decode(r io.Reader) (Record, error) {
	records, err := DecodeAll(r)
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, ErrNoRecord
	}
	return records[len(records)-1], nil
}

func decodeField(r *Record, key, val string) error {
	var err error
	num := strings.TrimSpace(val)
	switch key {
	case "environment":
		r.Environment = val
	case "steps":
		r.Steps, err = strconv.Atoi(num)
	case "states":
		r.States, err = strconv.Atoi(num)
	case "actions":
		r.Actions, err = strconv.Atoi(num)
	case "rule":
		r.Rule = val
	case "gamma":
		r.Gamma, err = strconv.ParseFloat(num, 64)
	case "alpha":
		r.Alpha, err = strconv.ParseFloat(num, 64)
	case "schedule":
		r.Schedule = val
	case "decay":
		r.Decay, err = strconv.ParseFloat(num, 64)
	case "min_alpha":
		r.MinAlpha, err = strconv.ParseFloat(num, 64)
	case "initial_policy":
		var p int
		p, err = strconv.Atoi(num)
		r.InitialPolicy = table.Action(p)
	case "initial_bias":
		r.InitialBias, err = strconv.ParseFloat(num, 64)
	case "reward":
		r.TotalReward, err = strconv.ParseFloat(num, 64)
	case "q":
		var e table.Entry
		e, err = decodeEntry(val)
		r.Entries = append(r.Entries, e)
	case "end":
	default:
		err = fmt.Errorf("unknown field %q", key)
	}
	return err
}

func decodeEntry(val string) (table.Entry, error) {
	f := strings.Fields(val)
	if len(f) != 4 {
		return table.Entry{}, fmt.Errorf("q line needs 4 fields, got %d", len(f))
	}
	s, err := strconv.Atoi(f[0])
	if err != nil {
		return table.Entry{}, err
	}
	a, err := strconv.Atoi(f[1])
	if err != nil {
		return table.Entry{}, err
	}
	est, err := strconv.ParseFloat(f[2], 64)
	if err != nil {
		return table.Entry{}, err
	}
	visits, err := strconv.ParseUint(f[3], 10, 32)
	if err != nil {
		return table.Entry{}, err
	}
	return table.Entry{State: table.State(s), Action: table.Action(a), Estimate: est, Visits: uint32(visits)}, nil
}
// #endregion decode
