package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/healthmate/backend/internal/storage/models"
)

// exportTemplate renders a self-contained HTML document, no external assets,
// suitable for printing or attaching to an email.
var exportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"title": reportTitle,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ title .Report.ReportType }} - {{ .GeneratedAt }}</title>
<style>
  body { font-family: Georgia, serif; max-width: 720px; margin: 2rem auto; color: #222; }
  h1 { border-bottom: 2px solid #2a6f6f; padding-bottom: .3rem; }
  h2 { color: #2a6f6f; margin-top: 1.6rem; }
  table { border-collapse: collapse; width: 100%; }
  th, td { text-align: left; padding: .3rem .6rem; border-bottom: 1px solid #ddd; }
  .disclaimer { margin-top: 2rem; font-size: .85rem; color: #777; border-top: 1px solid #ddd; padding-top: .6rem; }
</style>
</head>
<body>
<h1>{{ title .Report.ReportType }}</h1>
<p>Generated {{ .GeneratedAt }}{{ if .Range }} · covering {{ .Range }}{{ end }}</p>

{{ if .Sections }}
{{ range .Sections }}
<h2>{{ .Heading }}</h2>
{{ if .Rows }}
<table>
{{ range .Rows }}<tr><th>{{ .Label }}</th><td>{{ .Value }}</td></tr>
{{ end }}
</table>
{{ else }}
<p>{{ .Body }}</p>
{{ end }}
{{ end }}
{{ else }}
<p>No data recorded for this period.</p>
{{ end }}

<p class="disclaimer">{{ .Disclaimer }}</p>
</body>
</html>
`))

const exportDisclaimer = "This report is generated from self-reported data and " +
	"automated analysis. It is not a medical record and does not replace " +
	"professional advice."

type exportRow struct {
	Label string
	Value string
}

type exportSection struct {
	Heading string
	Rows    []exportRow
	Body    string
}

type exportView struct {
	Report      *models.HealthReport
	GeneratedAt string
	Range       string
	Sections    []exportSection
	Disclaimer  string
}

func reportTitle(reportType string) string {
	switch reportType {
	case TypeMood:
		return "Mood Journal Report"
	default:
		return "Health Summary Report"
	}
}

// ExportHTML renders the snapshot as a standalone HTML document.
func ExportHTML(r *models.HealthReport) ([]byte, error) {
	view := exportView{
		Report:      r,
		GeneratedAt: r.GeneratedAt.Format("January 2, 2006 15:04 MST"),
		Range:       rangeLabel(r.Data),
		Sections:    buildSections(r.Data),
		Disclaimer:  exportDisclaimer,
	}

	var buf bytes.Buffer
	if err := exportTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

func rangeLabel(data map[string]interface{}) string {
	rng, ok := data["range"].(map[string]string)
	if !ok {
		// Reports loaded back from storage decode as generic maps.
		generic, ok := data["range"].(map[string]interface{})
		if !ok {
			return ""
		}
		rng = map[string]string{}
		for k, v := range generic {
			if s, ok := v.(string); ok {
				rng[k] = s
			}
		}
	}
	from, to := rng["from"], rng["to"]
	switch {
	case from != "" && to != "":
		return from + " to " + to
	case from != "":
		return "from " + from
	case to != "":
		return "until " + to
	default:
		return ""
	}
}

func buildSections(data map[string]interface{}) []exportSection {
	var sections []exportSection

	if summary := insightSummary(data["narrative"]); summary != "" {
		sections = append(sections, exportSection{Heading: "Overview", Body: summary})
	}

	if mood, ok := data["mood"]; ok {
		if rows := moodRows(mood); len(rows) > 0 {
			sections = append(sections, exportSection{Heading: "Mood", Rows: rows})
		}
	}

	var activity []exportRow
	if n, ok := numberField(data, "symptomChecks"); ok {
		activity = append(activity, exportRow{Label: "Symptom checks", Value: fmt.Sprintf("%d", n)})
	}
	if n, ok := numberField(data, "prescriptionsAnalyzed"); ok {
		activity = append(activity, exportRow{Label: "Prescriptions analyzed", Value: fmt.Sprintf("%d", n)})
	}
	if rows := frequencyRows(data["topConditions"]); len(rows) > 0 {
		activity = append(activity, rows...)
	}
	if rows := frequencyRows(data["topMedications"]); len(rows) > 0 {
		activity = append(activity, rows...)
	}
	if len(activity) > 0 {
		sections = append(sections, exportSection{Heading: "Activity", Rows: activity})
	}

	if summary := insightSummary(data["moodInsight"]); summary != "" {
		sections = append(sections, exportSection{Heading: "Patterns", Body: summary})
	}

	return sections
}

// moodRows tolerates both the freshly-built analytics.MoodStats value and the
// generic map it becomes after a storage round trip.
func moodRows(mood interface{}) []exportRow {
	m, ok := normalize(mood)
	if !ok {
		return nil
	}

	var rows []exportRow
	if v, ok := m["count"].(float64); ok && v > 0 {
		rows = append(rows, exportRow{Label: "Entries", Value: fmt.Sprintf("%.0f", v)})
	}
	if v, ok := m["averageMood"].(float64); ok && v > 0 {
		rows = append(rows, exportRow{Label: "Average mood", Value: fmt.Sprintf("%.1f / 5", v)})
	}
	if v, ok := m["averageSleep"].(float64); ok && v > 0 {
		rows = append(rows, exportRow{Label: "Average sleep", Value: fmt.Sprintf("%.1f hours", v)})
	}
	return rows
}

func frequencyRows(v interface{}) []exportRow {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var counts []struct {
		Value string `json:"value"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil
	}
	var rows []exportRow
	for _, c := range counts {
		rows = append(rows, exportRow{Label: c.Value, Value: fmt.Sprintf("%d times", c.Count)})
	}
	return rows
}

func insightSummary(v interface{}) string {
	m, ok := normalize(v)
	if !ok {
		return ""
	}
	s, _ := m["summary"].(string)
	return s
}

func numberField(data map[string]interface{}, key string) (int, bool) {
	switch v := data[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// normalize flattens any value into a generic map via a JSON round trip so
// export code handles fresh and stored reports identically.
func normalize(v interface{}) (map[string]interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m, true
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return m, true
}
