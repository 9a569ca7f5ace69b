// Package progress reports pipeline liveness on stderr. It is an
// optional observer: every entry point works with a nil reporter.
package progress

import (
	"os"
	"strconv"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"seqtag/internal/logging"
)

// Reporter counts processed sentences and periodically logs the count
// together with the resident memory of the process.
type Reporter struct {
	log   *logging.Logger
	every int
	count int
	proc  *process.Process
}

func NewReporter(log *logging.Logger, every int) *Reporter {
	if log == nil {
		log = logging.Discard()
	}
	if every <= 0 {
		every = 1000
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		proc = nil
	}
	return &Reporter{log: log, every: every, proc: proc}
}

// Step records one processed sentence.
func (r *Reporter) Step() {
	if r == nil {
		return
	}
	r.count++
	if r.count%r.every == 0 {
		r.log.Info("%d sentences... (rss %s)", r.count, r.rss())
	}
}

// Done logs the final count.
func (r *Reporter) Done() {
	if r == nil {
		return
	}
	r.log.Info("%d sentences...done", r.count)
}

// Count returns the number of recorded sentences.
func (r *Reporter) Count() int {
	if r == nil {
		return 0
	}
	return r.count
}

func (r *Reporter) rss() string {
	if r.proc == nil {
		return "n/a"
	}
	mi, err := r.proc.MemoryInfo()
	if err != nil || mi == nil {
		return "n/a"
	}
	const mb = 1024 * 1024
	return strconv.FormatUint(mi.RSS/mb, 10) + "MB"
}

// FileBar renders a progress bar over a known number of files, used by
// directory tagging.
func FileBar(total int64, label string) (*mpb.Progress, *mpb.Bar) {
	p := mpb.New(mpb.WithWidth(80), mpb.WithOutput(os.Stderr))
	bar := p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(label+": "),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done!"),
		),
	)
	return p, bar
}
