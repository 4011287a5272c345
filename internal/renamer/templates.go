package renamer

// Template is a predefined rename pattern offered to users.
type Template struct {
	Name        string
	Description string
	Pattern     string
}

// Templates maps stable keys to the built-in rename patterns.
var Templates = map[string]Template{
	"original": {
		Name:        "Keep Original",
		Description: "Keep the original filename",
		Pattern:     "{filename}",
	},
	"date_filename": {
		Name:        "Date + Filename",
		Description: "2024-01-15_invoice.pdf",
		Pattern:     "{date}_{filename}",
	},
	"sender_date_filename": {
		Name:        "Sender + Date + Filename",
		Description: "john_2024-01-15_invoice.pdf",
		Pattern:     "{sender}_{date}_{filename}",
	},
	"sender_filename": {
		Name:        "Sender + Filename",
		Description: "john_invoice.pdf",
		Pattern:     "{sender}_{filename}",
	},
	"subject_filename": {
		Name:        "Subject + Filename",
		Description: "Monthly_Report_data.xlsx",
		Pattern:     "{subject}_{filename}",
	},
	"date_sender_subject": {
		Name:        "Date + Sender + Subject",
		Description: "2024-01-15_john_Monthly_Report.pdf",
		Pattern:     "{date}_{sender}_{subject}_{filename}",
	},
}

// FromTemplate resolves a predefined template key to its pattern,
// falling back to the identity pattern for unknown keys.
func FromTemplate(key string) string {
	if t, ok := Templates[key]; ok {
		return t.Pattern
	}
	return "{filename}"
}
