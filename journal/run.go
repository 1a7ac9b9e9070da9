package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"
)

var runOrgFuncs = template.FuncMap{
	"pct":   Percent,
	"money": Money,
	"day": func(t time.Time) string {
		if t.IsZero() {
			return "(none)"
		}
		return t.Format("2006-01-02")
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrgTmpl = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// Org renders the run as an org-mode block.
func (r RunRecord) Org() (string, error) {
	buf := new(bytes.Buffer)
	if err := runOrgTmpl.Execute(buf, r); err != nil {
		return "", fmt.Errorf("render run %s: %w", r.RunID, err)
	}
	return buf.String(), nil
}

// WriteOrg writes the org block to r.OrgPath.
func (r RunRecord) WriteOrg() error {
	if r.OrgPath == "" {
		return fmt.Errorf("run %s: no org path", r.RunID)
	}
	s, err := r.Org()
	if err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, []byte(s), 0644)
}

const RunOrgTemplate = `
* REPLAY: {{.Account}} {{day .FirstDay}} .. {{day .LastDay}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:ACCOUNT:     {{.Account}}
:OVERLAY:     {{if .Overlay}}on{{else}}off{{end}}
:FIRST_DAY:   {{day .FirstDay}}
:LAST_DAY:    {{day .LastDay}}
:DAYS:        {{.Days}}
:START_VAL:   {{money .StartValue}}
:END_VAL:     {{money .EndValue}}
:RETURN_PCT:  {{pct .ProfitRate}}
:MAX_DD_PCT:  {{pct .MaxDrawdown}}
:CREATED:     [{{(orTime .Started).Format "2006-01-02 Mon 15:04"}}]
:END:

** Activity
| Event       | Count |
|-------------+-------|
| Buy-ins     | {{.Buys}} |
| Sell-outs   | {{.Sells}} |
| Reductions  | {{.Reductions}} |
| No quote    | {{.Skipped}} |

** Equity Curve
{{- if .ChartPNG }}
[[file:{{.ChartPNG}}]]
{{- else }}
# (optional) render with: watchtrader report --chart equity.png
{{- end }}

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
