package clinic

import (
	"bytes"
	"html/template"
	"strings"
)

const brand = "BookMyCare"

var mailTemplates = template.Must(template.New("mail").Parse(`
{{define "booked"}}<div style="font-family: sans-serif; padding: 20px; border: 1px solid #e2e8f0; border-radius: 12px;">
  <h2 style="color: #0284c7;">Appointment Confirmation</h2>
  <p>Your appointment with <strong>Dr. {{.DoctorName}}</strong> has been successfully booked.</p>
  <p><strong>Date:</strong> {{.Date}}</p>
  <p><strong>Time:</strong> {{.Time}}</p>
  <hr style="border: 0; border-top: 1px solid #e2e8f0; margin: 20px 0;">
  <p style="font-size: 12px; color: #64748b;">This is an automated reminder from {{.Brand}}.</p>
</div>{{end}}
{{define "status"}}<div style="font-family: sans-serif; padding: 20px; border: 1px solid #e2e8f0; border-radius: 12px;">
  <h2 style="color: {{.Color}};">Appointment {{.Title}}</h2>
  <p>Your appointment with <strong>Dr. {{.DoctorName}}</strong> has been <strong>{{.Status}}</strong>.</p>
  <p><strong>Date:</strong> {{.Date}}</p>
  <p><strong>Time:</strong> {{.Time}}</p>
  {{if .Notes}}<p><strong>Notes:</strong> {{.Notes}}</p>{{end}}
  <hr style="border: 0; border-top: 1px solid #e2e8f0; margin: 20px 0;">
  <p style="font-size: 12px; color: #64748b;">This is an automated notification from {{.Brand}}.</p>
</div>{{end}}
{{define "reminder"}}<div style="font-family: sans-serif; padding: 20px; border: 1px solid #e2e8f0; border-radius: 12px;">
  <h2 style="color: #0284c7;">Upcoming Appointment</h2>
  <p>This is a reminder of your appointment with <strong>Dr. {{.DoctorName}}</strong>.</p>
  <p><strong>Date:</strong> {{.Date}}</p>
  <p><strong>Time:</strong> {{.Time}}</p>
  <hr style="border: 0; border-top: 1px solid #e2e8f0; margin: 20px 0;">
  <p style="font-size: 12px; color: #64748b;">This is an automated reminder from {{.Brand}}.</p>
</div>{{end}}
`))

type mailData struct {
	Brand      string
	DoctorName string
	Date       string
	Time       string
	Status     string
	Title      string
	Color      template.CSS
	Notes      string
}

func render(name string, data mailData) (string, error) {
	data.Brand = brand
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func bookedMail(doctorName, date, time string) (string, string, error) {
	body, err := render("booked", mailData{DoctorName: doctorName, Date: date, Time: time})
	return "Appointment Booked - " + brand, body, err
}

func statusMail(v *AppointmentView) (string, string, error) {
	title := capitalize(string(v.Status))
	color := template.CSS("#dc2626")
	if v.Status == StatusApproved || v.Status == StatusCompleted {
		color = "#059669"
	}

	data := mailData{
		DoctorName: v.DoctorName,
		Date:       v.Date,
		Time:       v.Time,
		Status:     string(v.Status),
		Title:      title,
		Color:      color,
	}
	if v.Notes != nil {
		data.Notes = *v.Notes
	}

	body, err := render("status", data)
	return "Appointment " + title + " - " + brand, body, err
}

func reminderMail(v AppointmentView) (string, string, error) {
	body, err := render("reminder", mailData{DoctorName: v.DoctorName, Date: v.Date, Time: v.Time})
	return "Appointment Reminder - " + brand, body, err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
