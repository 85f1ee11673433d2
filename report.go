package hackpoint

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// ReportEntry records what became of one submitted breakpoint.
type ReportEntry struct {
	Name string
	// Addrs lists the addresses actually hooked.
	Addrs []uintptr
	// Err is the rejection reason for a skipped breakpoint.
	Err string
}

// Report is the caller-level summary of one installation pass.
// Skipped counts breakpoints that ended up with zero installed
// addresses, whatever the reason; it is never a fatal condition.
type Report struct {
	Total     int
	Installed int
	Skipped   int
	// Addresses is the number of rendered (definition, address) pairs,
	// which equals the number of stub instances and source cave
	// entries that exist.
	Addresses int
	Entries   []ReportEntry
}

func (r *Report) skip(name, reason string) {
	r.Skipped++
	r.Entries = append(r.Entries, ReportEntry{Name: name, Err: reason})
}

// WriteTo serializes the report into an in-progress JSON stream.
func (r *Report) WriteTo(w *jwriter.Writer) {
	obj := w.Object()
	defer obj.End()

	obj.Name("Total").Int(r.Total)
	obj.Name("Installed").Int(r.Installed)
	obj.Name("Skipped").Int(r.Skipped)
	obj.Name("Addresses").Int(r.Addresses)

	arr := obj.Name("Breakpoints").Array()
	defer arr.End()
	for i := range r.Entries {
		e := &r.Entries[i]
		entry := arr.Object()
		entry.Name("Name").String(e.Name)
		if e.Err != "" {
			entry.Name("Error").String(e.Err)
		}
		if len(e.Addrs) > 0 {
			addrs := entry.Name("Addrs").Array()
			for _, a := range e.Addrs {
				addrs.String("0x" + strconv.FormatUint(uint64(a), 16))
			}
			addrs.End()
		}
		entry.End()
	}
}

// JSON renders the report as a JSON document.
func (r *Report) JSON() ([]byte, error) {
	w := jwriter.NewWriter()
	r.WriteTo(&w)
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "serializing install report")
	}
	return w.Bytes(), nil
}
