package uitest

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Step is one entry of a run's timeline: a check result or a screen
// capture, in the order they happened.
type Step struct {
	Name    string        `json:"name"`
	Passed  bool          `json:"passed"`
	Elapsed time.Duration `json:"elapsed_ns,omitempty"`
	Screen  string        `json:"screen,omitempty"` // set for captures only
}

func (s Step) IsCapture() bool { return s.Screen != "" }

func (s Step) Took() string { return s.Elapsed.Round(time.Millisecond).String() }

// Report collects a run's timeline and writes it out as HTML and JSON.
type Report struct {
	Started   time.Time
	OutputDir string
	Steps     []Step
}

func NewReport(outputDir string) *Report {
	return &Report{Started: time.Now(), OutputDir: outputDir}
}

// AddResult records a check.
func (r *Report) AddResult(name string, passed bool, elapsed time.Duration) {
	r.Steps = append(r.Steps, Step{Name: name, Passed: passed, Elapsed: elapsed})
}

// AddSnapshot records a screen capture. Blank rows below the last drawn
// line are dropped.
func (r *Report) AddSnapshot(label string, content string) {
	r.Steps = append(r.Steps, Step{Name: label, Passed: true, Screen: strings.TrimRight(content, " \n")})
}

// Counts returns the number of passed and failed checks.
func (r *Report) Counts() (passed, failed int) {
	for _, s := range r.Steps {
		switch {
		case s.IsCapture():
		case s.Passed:
			passed++
		default:
			failed++
		}
	}
	return passed, failed
}

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>glimpsh UI run {{.Stamp}}</title>
<style>
body { font: 14px/1.4 ui-monospace, Menlo, Consolas, monospace; background: #111417; color: #d8dee4; margin: 2em auto; max-width: 110ch; }
header { display: flex; justify-content: space-between; align-items: baseline; border-bottom: 2px solid {{if .Failed}}#e5534b{{else}}#57ab5a{{end}}; }
ol { list-style: none; padding: 0; }
li { margin: .3em 0; }
.ok::before { content: "ok   "; color: #57ab5a; }
.bad::before { content: "FAIL "; color: #e5534b; font-weight: bold; }
.t { color: #768390; margin-left: 1ch; }
figure { margin: 1em 0; }
figcaption { color: #768390; }
pre { background: #000; color: #adbac7; padding: 1ch; overflow-x: auto; line-height: 1.15; border: 1px solid #2d333b; }
</style>
</head>
<body>
<header>
<h1>glimpsh UI run</h1>
<span>{{.Passed}} passed, {{.Failed}} failed, {{.Stamp}}</span>
</header>
<ol>
{{- range .Steps}}
{{- if .IsCapture}}
<li><figure><figcaption>{{.Name}}</figcaption><pre>{{.Screen}}</pre></figure></li>
{{- else}}
<li class="{{if .Passed}}ok{{else}}bad{{end}}">{{.Name}}<span class="t">{{.Took}}</span></li>
{{- end}}
{{- end}}
</ol>
</body>
</html>
`))

// Generate writes test-<stamp>.html and a matching .json next to it, and
// returns the HTML path.
func (r *Report) Generate() (string, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}
	stamp := r.Started.Format("20060102-150405")
	base := filepath.Join(r.OutputDir, "test-"+stamp)

	passed, failed := r.Counts()
	f, err := os.Create(base + ".html")
	if err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	defer f.Close()
	err = reportTmpl.Execute(f, map[string]any{
		"Stamp":  stamp,
		"Passed": passed,
		"Failed": failed,
		"Steps":  r.Steps,
	})
	if err != nil {
		return "", fmt.Errorf("report: %w", err)
	}

	data, err := json.MarshalIndent(r.Steps, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(base+".json", data, 0o644); err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	return base + ".html", nil
}
