package runner

// Output formats printed to stdout
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

type Options struct {
	// Map references, a folder, a zip file or an http(s) URL
	OldRef string
	NewRef string

	// Compared difficulty
	Difficulty     string
	Characteristic string
	IncludeLights  bool

	// Policy evaluation, skipped when PoliciesPath is empty
	PoliciesPath string
	Notes        []string // update notes checked for override keywords

	// Output options
	TemplatesPath string
	OutputDir     string // report files are written here when set
	Format        string // "text", "json" or "markdown"
	Color         bool
}
