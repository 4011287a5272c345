package renamer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		opts     *Options
		filename string
		sender   string
		subject  string
		date     string
		want     string
	}{
		{
			name:     "full pattern with named sender",
			pattern:  "{date}_{sender}_{subject}_{filename}",
			filename: "Invoice.PDF",
			sender:   `"John Doe" <john@x.com>`,
			subject:  "Monthly Report",
			date:     "2024-01-15",
			want:     "2024_01_15_John_Doe_Monthly_Report_Invoice.PDF",
		},
		{
			name:     "lowercase option lowers result and extension",
			pattern:  "{date}_{sender}_{subject}_{filename}",
			opts:     &Options{ReplaceSpaces: true, Lowercase: true, SpaceReplacement: "_"},
			filename: "Invoice.PDF",
			sender:   `"John Doe" <john@x.com>`,
			subject:  "Monthly Report",
			date:     "2024-01-15",
			want:     "2024_01_15_john_doe_monthly_report_invoice.pdf",
		},
		{
			name:     "missing metadata falls back to defaults",
			pattern:  "{date}_{sender}_{subject}_{filename}",
			filename: "scan.png",
			want:     "nodate_unknown_nosubject_scan.png",
		},
		{
			name:     "bare address uses local part",
			pattern:  "{sender}_{filename}",
			filename: "notes.txt",
			sender:   "alice@example.org",
			want:     "alice_notes.txt",
		},
		{
			name:     "keep original replaces spaces",
			pattern:  "{filename}",
			filename: "final  report v2.docx",
			want:     "final_report_v2.docx",
		},
		{
			name:     "spaces kept when replacement disabled",
			pattern:  "{filename}",
			opts:     &Options{},
			filename: "final report.docx",
			want:     "final report.docx",
		},
		{
			name:     "invalid characters stripped from components",
			pattern:  "{subject}_{filename}",
			subject:  `Re: "urgent" <now>`,
			filename: "a/b\\c.txt",
			want:     "Re_urgent_now_abc.txt",
		},
		{
			name:     "separator runs collapse",
			pattern:  "{filename}",
			filename: "weird---name___here.txt",
			want:     "weird_name_here.txt",
		},
		{
			name:     "no extension",
			pattern:  "{date}_{filename}",
			filename: "README",
			date:     "2023-07-01",
			want:     "2023_07_01_README",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.pattern)
			if tt.opts != nil {
				r.SetOptions(*tt.opts)
			}
			got, err := r.Apply(tt.filename, tt.sender, tt.subject, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyUnknownPlaceholder(t *testing.T) {
	r := New("{date}_{foo}_{filename}")
	_, err := r.Apply("a.txt", "", "", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{foo}")
}

func TestApplyDeterministic(t *testing.T) {
	r := New("{sender}_{subject}_{filename}")
	first, err := r.Apply("report.pdf", "Bob <bob@x.com>", "Q3", "")
	require.NoError(t, err)

	second, err := r.Apply("report.pdf", "Bob <bob@x.com>", "Q3", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCounter(t *testing.T) {
	r := New("{counter}_{filename}")

	for i := 1; i <= 3; i++ {
		got, err := r.Apply("f.txt", "", "", "")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%d_f.txt", i), got)
	}

	r.ResetCounter()
	got, err := r.Apply("f.txt", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "1_f.txt", got)
}

func TestCounterAdvancesWithoutPlaceholder(t *testing.T) {
	r := New("{filename}")
	_, err := r.Apply("a.txt", "", "", "")
	require.NoError(t, err)
	_, err = r.Apply("b.txt", "", "", "")
	require.NoError(t, err)

	// The counter kept pace even though the pattern never used it
	r.pattern = "{counter}"
	got, err := r.Apply("c.txt", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "3.txt", got)
}

func TestExtractSenderName(t *testing.T) {
	tests := []struct {
		sender string
		want   string
	}{
		{`"John Doe" <john@x.com>`, "John Doe"},
		{"Jane Roe <jane@x.com>", "Jane Roe"},
		{"bob@example.com", "bob"},
		{"", "unknown"},
		{"just a plain string", "just a plain string"},
		{"aaaaaaaaaabbbbbbbbbbcccccccccc", "aaaaaaaaaabbbbbbbbbb"},
	}

	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			assert.Equal(t, tt.want, extractSenderName(tt.sender))
		})
	}
}

func TestFromTemplate(t *testing.T) {
	assert.Equal(t, "{date}_{filename}", FromTemplate("date_filename"))
	assert.Equal(t, "{filename}", FromTemplate("no_such_template"))
	assert.Equal(t, "{filename}", FromTemplate(""))
}
