package watcher

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
)

// mdEscaper escapes every MarkdownV2-special character in one pass.
// Applied exactly once, at render time, to text destined for the sink.
var mdEscaper = strings.NewReplacer(
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`,
	"(", `\(`, ")", `\)`, "~", `\~`, "`", "\\`",
	">", `\>`, "#", `\#`, "+", `\+`, "=", `\=`,
	"|", `\|`, "{", `\{`, "}", `\}`, `\`, `\\`,
	"-", `\-`, ".", `\.`, "!", `\!`,
)

func escapeMD(s string) string { return mdEscaper.Replace(s) }

// Composer renders the filtered slot set into the notification text.
// The output is deterministic: grouping is location (declared order) →
// date (ascending) → time-range (ascending by start), courts ascending
// with unknown last. The rendered text is what gets hashed for
// idempotence, so any incidental ordering would break send-once.
type Composer struct {
	title      string
	bookingURL string
	locations  []string // declared location order
}

func NewComposer(title, bookingURL string, locationOrder []string) *Composer {
	return &Composer{title: title, bookingURL: bookingURL, locations: locationOrder}
}

type courtEntry struct {
	num   *int
	isNew bool
}

type rangeGroup struct {
	start, end slot.TimeOfDay
	courts     []courtEntry
}

func (c *Composer) Render(records []slot.Record, d slot.Diff) string {
	var lines []string

	header := fmt.Sprintf("🎾 *%s* \\- %d slots", escapeMD(c.title), len(records))
	if len(d.New) > 0 {
		header += fmt.Sprintf(" \\| 🆕 %d new", len(d.New))
	}
	lines = append(lines, header+"\n")

	byLocation := make(map[string][]slot.Record, len(c.locations))
	for _, rec := range records {
		byLocation[rec.LocationName] = append(byLocation[rec.LocationName], rec)
	}

	for _, name := range c.locations {
		recs := byLocation[name]
		if len(recs) == 0 {
			continue
		}
		lines = append(lines, "*"+escapeMD(name)+"*")

		for _, day := range sortedDates(recs) {
			lines = append(lines, "\n`"+day.Format("02/01")+" "+day.Format("Mon")+"`")
			for _, g := range rangeGroups(recs, day, d.New) {
				lines = append(lines, "• "+escapeMD(g.start.String())+" \\- "+escapeMD(g.end.String())+" → "+escapeMD(courtsText(g.courts)))
			}
		}
		lines = append(lines, "")
	}

	lines = append(lines, removedLines(d.Removed)...)
	lines = append(lines, "[🔗 Book]("+c.bookingURL+")")

	return strings.Join(lines, "\n")
}

func sortedDates(recs []slot.Record) []time.Time {
	seen := map[time.Time]struct{}{}
	var out []time.Time
	for _, r := range recs {
		if _, ok := seen[r.Date]; !ok {
			seen[r.Date] = struct{}{}
			out = append(out, r.Date)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func rangeGroups(recs []slot.Record, day time.Time, newKeys slot.KeySet) []rangeGroup {
	groups := map[[2]int]*rangeGroup{}
	for _, r := range recs {
		if !r.Date.Equal(day) {
			continue
		}
		k := [2]int{r.Start.Minutes(), r.End.Minutes()}
		g, ok := groups[k]
		if !ok {
			g = &rangeGroup{start: r.Start, end: r.End}
			groups[k] = g
		}
		g.courts = append(g.courts, courtEntry{num: r.CourtNumber, isNew: newKeys.Has(r.Key())})
	}

	out := make([]rangeGroup, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g.courts, func(i, j int) bool {
			return courtSortKey(g.courts[i].num) < courtSortKey(g.courts[j].num)
		})
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].start.Minutes() != out[j].start.Minutes() {
			return out[i].start.Minutes() < out[j].start.Minutes()
		}
		return out[i].end.Minutes() < out[j].end.Minutes()
	})
	return out
}

// courtSortKey sorts unknown court numbers last.
func courtSortKey(n *int) int {
	if n == nil {
		return 1 << 30
	}
	return *n
}

func courtsText(entries []courtEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		s := "?"
		if e.num != nil {
			s = fmt.Sprintf("%d", *e.num)
		}
		if e.isNew {
			s += "🆕"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

const maxRemovedShown = 5

// removedLines renders vanished slots struck through, abbreviated, and
// only when there are few enough to be signal rather than noise.
func removedLines(removed slot.KeySet) []string {
	if len(removed) == 0 || len(removed) > maxRemovedShown {
		return nil
	}
	lines := []string{"🗑️ *Removed:*"}
	for _, key := range removed.Sorted() {
		lines = append(lines, "~"+escapeMD(abbreviateKey(string(key)))+"~")
	}
	return append(lines, "")
}

func abbreviateKey(key string) string {
	parts := strings.SplitN(key, " - ", 3)
	if len(parts) != 3 {
		return key
	}
	loc := parts[0]
	if r := []rune(loc); len(r) > 4 {
		loc = string(r[:4])
	}
	date := parts[1]
	if seg := strings.Split(date, "/"); len(seg) >= 2 {
		date = seg[0] + "/" + seg[1]
	}
	label := strings.ReplaceAll(parts[2], " to ", "-")
	return loc + " " + date + " " + label
}
