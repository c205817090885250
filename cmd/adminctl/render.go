package main

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/akagifreeez/stream-admin/internal/dashboard"
	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

// lineRenderer prints one line per state change
type lineRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

func newLineRenderer(out io.Writer) *lineRenderer {
	return &lineRenderer{out: out}
}

func (r *lineRenderer) Render(s dashboard.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprint(r.out, formatState(s))
}

func formatState(s dashboard.State) string {
	line := fmt.Sprintf("status=%s", s.Health)
	if s.Stats != nil {
		line += " " + formatStats(*s.Stats)
	}
	if s.Keys != nil {
		line += fmt.Sprintf(" listed_keys=%d", len(s.Keys))
	}
	if s.LastError != "" {
		line += fmt.Sprintf(" error=%q", s.LastError)
	}
	return line + "\n"
}

func formatStats(st adminapi.StatsSnapshot) string {
	return fmt.Sprintf("keys=%d requests=%d active_users=%d revenue=₹%g",
		st.TotalKeys, st.TotalRequests, st.ActiveUsers, st.Revenue)
}

func writeStats(out io.Writer, st adminapi.StatsSnapshot) {
	fmt.Fprintln(out, formatStats(st))
}

func keyStatus(k adminapi.KeySummary, now time.Time) string {
	switch {
	case !k.IsActive:
		return "inactive"
	case k.Expired(now):
		return "expired"
	default:
		return "active"
	}
}

// writeKeys prints the masked key list as a table
func writeKeys(out io.Writer, keys []adminapi.KeySummary, now time.Time) error {
	if len(keys) == 0 {
		_, err := fmt.Fprintln(out, "No keys found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OWNER\tKEY\tDAILY LIMIT\tTODAY\tTOTAL\tEXPIRES\tSTATUS")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			k.OwnerName,
			k.MaskedKey,
			k.DailyLimit,
			k.RequestsToday,
			k.TotalRequests,
			k.ExpiresAt.Format("2006-01-02"),
			keyStatus(k, now),
		)
	}
	return w.Flush()
}
