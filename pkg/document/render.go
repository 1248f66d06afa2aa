package document

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/nixvault/pkg/record"
)

// Ext is the document file extension.
const Ext = ".md"

// Link returns the wiki link that points at the document for id.
func Link(id string) string {
	return "[[" + record.NormalizeID(id) + "]]"
}

// Render converts r into a markdown document stamped with generatedAt.
func Render(r *record.Record, generatedAt time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", r.Name)
	buf.WriteString(tags(r))
	buf.WriteString("\n\n")

	writeMetadata(&buf, r)

	if r.LongDescription != "" {
		section(&buf, "Description")
		buf.WriteString(strings.TrimSpace(r.LongDescription))
		buf.WriteString("\n\n")
	}

	if len(r.Maintainers) > 0 {
		section(&buf, "Maintainers")
		for _, m := range r.Maintainers {
			fmt.Fprintf(&buf, "- %s\n", m)
		}
		buf.WriteString("\n")
	}

	if r.IsEnriched() {
		section(&buf, "Build Information")
		fmt.Fprintf(&buf, "- **Derivation**: `%s`\n", r.DrvPath)
		if len(r.Outputs) > 0 {
			fmt.Fprintf(&buf, "- **Outputs**: %s\n", strings.Join(r.Outputs, ", "))
		}
		buf.WriteString("\n")
	}

	if deps := r.DependencyIDs(); len(deps) > 0 {
		section(&buf, "Dependencies")
		for _, id := range deps {
			fmt.Fprintf(&buf, "- %s\n", Link(id))
		}
		buf.WriteString("\n")
	}

	if len(r.InputSrcs) > 0 {
		section(&buf, "Input Sources")
		for _, src := range r.InputSrcs {
			fmt.Fprintf(&buf, "- `%s`\n", src)
		}
		buf.WriteString("\n")
	}

	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "*Generated: %s*\n", generatedAt.UTC().Format(time.RFC3339))
	return buf.Bytes()
}

func tags(r *record.Record) string {
	t := []string{"#package"}
	if r.Broken {
		t = append(t, "#broken")
	}
	if !r.Available {
		t = append(t, "#unavailable")
	}
	return strings.Join(t, " ")
}

func writeMetadata(buf *bytes.Buffer, r *record.Record) {
	fmt.Fprintf(buf, "- **Name**: %s\n", r.Name)
	fmt.Fprintf(buf, "- **Version**: %s\n", oneLine(r.Version))
	fmt.Fprintf(buf, "- **Available**: %s\n", yesNo(r.Available, "✅ Yes", "❌ No"))
	fmt.Fprintf(buf, "- **Broken**: %s\n", yesNo(r.Broken, "⚠️ Yes", "No"))
	if r.Description != "" {
		fmt.Fprintf(buf, "- **Description**: %s\n", oneLine(r.Description))
	}
	if r.Homepage != "" {
		fmt.Fprintf(buf, "- **Homepage**: %s\n", oneLine(r.Homepage))
	}
	fmt.Fprintf(buf, "- **License**: %s\n", r.LicenseShortName)
	if len(r.Platforms) > 0 {
		fmt.Fprintf(buf, "- **Platforms**: %s\n", strings.Join(r.Platforms, ", "))
	}
	buf.WriteString("\n")
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// oneLine keeps a value inside its list item.
func oneLine(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}

func section(buf *bytes.Buffer, title string) {
	fmt.Fprintf(buf, "## %s\n\n", title)
}

func yesNo(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
