package rendering

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/jonathan/resume-studio/internal/types"
)

//go:embed templates/jake.tex.tmpl
var jakeTemplate string

// The template uses << >> delimiters because LaTeX is full of braces.
var resumeTemplate = template.Must(template.New("jake").
	Delims("<<", ">>").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(jakeTemplate))

// TemplateData is the escaped view of a profile passed to the LaTeX template.
// Every string in it is ready for interpolation.
type TemplateData struct {
	Name       string
	Contact    []string
	Education  []EducationSection
	Experience []ExperienceSection
	Projects   []ProjectSection
	Skills     string
}

// EducationSection is one rendered education entry.
type EducationSection struct {
	Institution string
	Location    string
	Degree      string
	Dates       string
	Bullets     []string
}

// ExperienceSection is one rendered work entry.
type ExperienceSection struct {
	Position string
	Company  string
	Location string
	Dates    string
	Bullets  []string
}

// ProjectSection is one rendered project entry.
type ProjectSection struct {
	Heading string
	Dates   string
	Bullets []string
}

// RenderProfile renders a profile into a complete LaTeX document.
// A nil profile renders as an empty one. The only error is a TemplateError from a broken template.
func RenderProfile(profile *types.Profile) (string, error) {
	if profile == nil {
		profile = &types.Profile{}
	}

	var result strings.Builder
	if err := resumeTemplate.Execute(&result, BuildTemplateData(profile)); err != nil {
		return "", &TemplateError{
			Message: "failed to execute template",
			Cause:   err,
		}
	}
	return result.String(), nil
}

// BuildTemplateData escapes and formats every field of the profile.
func BuildTemplateData(p *types.Profile) *TemplateData {
	data := &TemplateData{
		Name:    EscapeLaTeX(p.Name),
		Contact: buildContact(p),
		Skills:  joinEscaped(p.Skills, ", "),
	}

	for _, edu := range p.Education {
		data.Education = append(data.Education, EducationSection{
			Institution: EscapeLaTeX(edu.Institution),
			Location:    EscapeLaTeX(edu.Location),
			Degree:      EscapeLaTeX(degreeLine(edu)),
			Dates:       FormatDateRange(edu.StartDate, edu.EndDate, false),
			Bullets:     escapeAll(nonBlank([]string{edu.Description})),
		})
	}

	for _, work := range p.WorkExperience {
		data.Experience = append(data.Experience, ExperienceSection{
			Position: EscapeLaTeX(work.Position),
			Company:  EscapeLaTeX(work.Company),
			Location: EscapeLaTeX(work.Location),
			Dates:    FormatDateRange(work.StartDate, work.EndDate, work.Current),
			Bullets:  escapeAll(nonBlank(work.Description)),
		})
	}

	for _, proj := range p.Projects {
		bullets := append(nonBlank(proj.Description), nonBlank(proj.Highlights)...)
		data.Projects = append(data.Projects, ProjectSection{
			Heading: projectHeading(proj),
			Dates:   FormatDateRange(proj.StartDate, proj.EndDate, false),
			Bullets: escapeAll(bullets),
		})
	}

	return data
}

func buildContact(p *types.Profile) []string {
	var contact []string
	if p.Phone != "" {
		contact = append(contact, EscapeLaTeX(p.Phone))
	}
	if p.Email != "" {
		contact = append(contact, href("mailto:"+p.Email, p.Email))
	}
	if p.Location != "" {
		contact = append(contact, EscapeLaTeX(p.Location))
	}
	for _, link := range p.SocialLinks {
		if link.URL == "" {
			continue
		}
		contact = append(contact, href(link.URL, displayURL(link.URL)))
	}
	return contact
}

func degreeLine(edu types.Education) string {
	line := edu.Degree
	if edu.Field != "" {
		if line != "" {
			line += " in "
		}
		line += edu.Field
	}
	if edu.GPA != nil {
		line += fmt.Sprintf(", GPA: %.2f", *edu.GPA)
	}
	return line
}

func projectHeading(proj types.Project) string {
	heading := `\textbf{` + EscapeLaTeX(proj.Name) + `}`
	if len(proj.Technologies) > 0 {
		heading += ` $|$ \emph{` + joinEscaped(proj.Technologies, ", ") + `}`
	}
	if proj.Link != "" {
		heading += ` $|$ ` + href(proj.Link, displayURL(proj.Link))
	}
	if proj.GithubURL != "" {
		heading += ` $|$ ` + href(proj.GithubURL, displayURL(proj.GithubURL))
	}
	return heading
}

func href(url, text string) string {
	return `\href{` + EscapeURL(url) + `}{\underline{` + EscapeLaTeX(text) + `}}`
}

func joinEscaped(items []string, sep string) string {
	return strings.Join(escapeAll(nonBlank(items)), sep)
}

func escapeAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, EscapeLaTeX(item))
	}
	return out
}

func nonBlank(items []string) []string {
	var out []string
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	return out
}
