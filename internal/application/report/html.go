package report

import (
	"html/template"
	"strings"
)

// emailTemplate mirrors the operator scorecard layout: one bordered table
// per parent entity, one row per tripped alert.
var emailTemplate = template.Must(template.New("email").Parse(`<h2>Daily Delivery Scorecards</h2>
{{range .}}<div style="margin-bottom: 25px; border: 1px solid #ccc; border-radius: 5px; overflow: hidden;">
  <div style="background-color: #eee; padding: 10px; font-weight: bold; border-bottom: 1px solid #ccc;">{{.Parent}}</div>
  <table style="width: 100%; border-collapse: collapse; font-size: 14px;">
    <tr style="background-color: #f9f9f9; text-align: left;">
      <th style="padding: 8px; border-bottom: 1px solid #ddd;">Entity</th>
      <th style="padding: 8px; border-bottom: 1px solid #ddd;">Alert Type</th>
      <th style="padding: 8px; border-bottom: 1px solid #ddd; color: #d9534f;">Issue Detected</th>
    </tr>
{{range .Items}}    <tr>
      <td style="padding: 8px; border-bottom: 1px solid #eee;">{{.Entity}}</td>
      <td style="padding: 8px; border-bottom: 1px solid #eee;">{{.Column}}</td>
      <td style="padding: 8px; border-bottom: 1px solid #eee; color: #d9534f; font-weight: bold;">{{.Status}}</td>
    </tr>
{{end}}  </table>
</div>
{{end}}`))

// RenderHTML produces the email body fragment, or "" when there is nothing
// to report (callers treat "" as "do not send").
func RenderHTML(groups []Group) (string, error) {
	if len(groups) == 0 {
		return "", nil
	}
	var sb strings.Builder
	if err := emailTemplate.Execute(&sb, groups); err != nil {
		return "", err
	}
	return sb.String(), nil
}
