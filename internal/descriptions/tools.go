// Package descriptions holds the long-form MCP tool descriptions.
package descriptions

const (
	PDFAAnalyzeDescription = `Check whether a PDF document conforms to a PDF/A level and list every violation found.

**When to use:** Before archiving a document, or to find out why a document is rejected by an archive that requires PDF/A.

**Why it's useful:** Reports the conformance the document claims in its XMP metadata next to the real findings (missing output intent, unembedded fonts, JavaScript, transparency, embedded files) and marks which of them the converter can repair.

**Examples:**
• Archive intake: "Is contract.pdf valid PDF/A-2b?"
• Strict target: "Analyze scan-042.pdf against pdfa-1b"
• Unicode check: "Does manual.pdf meet PDF/A-3u?"

**Common workflows:**
1. Triage: pdfa_analyze → only repairable findings → pdfa_convert
2. Audit: pdfa_analyze every file → collect unrepairable findings → fix at the source

**Best practices:** Omit conformance to use the server default (PDF/A-2b). Level "a" targets are not supported.`

	PDFAConvertDescription = `Convert a PDF document to PDF/A unless it conforms already.

**When to use:** A document must be archived as PDF/A and pdfa_analyze reported findings.

**Why it's useful:** Repairs what can be repaired (adds XMP metadata and an sRGB output intent, removes encryption, JavaScript, forbidden annotations, XFA, optional content and disallowed attachments) and lists every change as a conversion event.

**Examples:**
• Default target: "Convert invoice.pdf to invoice-pdfa.pdf"
• Explicit target: "Convert report.pdf to report-a1.pdf as pdfa-1b"
• Smaller output: "Convert slides.pdf with optimize enabled"

**Common workflows:**
1. Archive pipeline: pdfa_convert → check outcome → store output or reject
2. Review: pdfa_convert → read warnings → decide whether the result is acceptable

**Best practices:** An outcome of critical-events means the output was written but does not conform (usually unembedded fonts). No output is written for a document that conforms already.`

	PDFAServerInfoDescription = `Show the server version, the working directory, the default conformance target and the available tools.

**When to use:** At the start of a session, to learn which directory paths are resolved against and which conformance levels can be targeted.

**Best practices:** All paths given to the other tools must lie inside the working directory.`
)
