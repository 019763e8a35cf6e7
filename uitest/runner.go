package uitest

import (
	"testing"
	"time"
)

// Runner drives one session through a scripted scenario. Checks and
// captures land in a Report; a failed check captures the screen too.
type Runner struct {
	t       *testing.T
	session *Session
	report  *Report
}

// NewRunner starts cmd in a fresh session of the given size.
func NewRunner(t *testing.T, name string, width, height int, cmd, reportDir string) (*Runner, error) {
	s, err := NewSession(name, width, height, cmd)
	if err != nil {
		return nil, err
	}
	return &Runner{t: t, session: s, report: NewReport(reportDir)}, nil
}

func (r *Runner) Close() error { return r.session.Close() }

// Snapshot adds the current screen to the report.
func (r *Runner) Snapshot(label string) {
	screen, err := r.session.Capture()
	if err != nil {
		r.t.Logf("capture %q: %v", label, err)
		return
	}
	r.report.AddSnapshot(label, screen)
}

// Test runs one named check.
func (r *Runner) Test(name string, check func() bool) bool {
	r.t.Helper()
	start := time.Now()
	ok := check()
	r.report.AddResult(name, ok, time.Since(start))
	if !ok {
		r.t.Errorf("FAIL: %s", name)
		r.Snapshot("after failing: " + name)
		return false
	}
	r.t.Logf("ok: %s", name)
	return true
}

// must stops the scenario when input cannot be delivered.
func (r *Runner) must(err error, what string) {
	if err != nil {
		r.t.Helper()
		r.t.Fatalf("%s: %v", what, err)
	}
}

// SendKeys sends tmux key names such as "Enter", "C-q" or "M-3".
func (r *Runner) SendKeys(keys ...string) {
	r.must(r.session.SendKeys(keys...), "send keys")
}

// SendText types text literally.
func (r *Runner) SendText(text string) {
	r.must(r.session.SendText(text), "send text")
}

// SendLine types text followed by Enter.
func (r *Runner) SendLine(text string) {
	r.SendText(text)
	r.SendKeys("Enter")
}

// WaitFor reports whether pattern appears within timeout.
func (r *Runner) WaitFor(pattern string, timeout time.Duration) bool {
	return r.logged(r.session.WaitFor(pattern, timeout))
}

// WaitForRegex reports whether the screen matches within timeout.
func (r *Runner) WaitForRegex(pattern string, timeout time.Duration) bool {
	return r.logged(r.session.WaitForRegex(pattern, timeout))
}

// Contains reports whether the screen shows pattern now.
func (r *Runner) Contains(pattern string) bool {
	ok, err := r.session.Contains(pattern)
	return r.logged(err) && ok
}

// Matches reports whether the screen matches a regular expression now.
func (r *Runner) Matches(pattern string) bool {
	ok, err := r.session.ContainsRegex(pattern)
	return r.logged(err) && ok
}

func (r *Runner) logged(err error) bool {
	if err != nil {
		r.t.Log(err)
		return false
	}
	return true
}

func (r *Runner) Sleep(d time.Duration) { time.Sleep(d) }

// GenerateReport writes the report and returns its path, or "" on error.
func (r *Runner) GenerateReport() string {
	path, err := r.report.Generate()
	if err != nil {
		r.t.Errorf("report: %v", err)
		return ""
	}
	passed, failed := r.report.Counts()
	r.t.Logf("%d passed, %d failed; report at %s", passed, failed, path)
	return path
}
