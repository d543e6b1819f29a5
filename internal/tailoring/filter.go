package tailoring

import (
	"sort"
	"strings"

	"github.com/jonathan/resume-studio/internal/types"
)

type workKey struct {
	company, position, startDate, endDate string
}

type educationKey struct {
	institution, degree, endDate string
}

func keyOf(w types.WorkExperience) workKey {
	w.Normalize()
	return workKey{
		company:   strings.TrimSpace(w.Company),
		position:  strings.TrimSpace(w.Position),
		startDate: strings.TrimSpace(w.StartDate),
		endDate:   w.EndDate,
	}
}

func educationKeyOf(e types.Education) educationKey {
	return educationKey{
		institution: strings.TrimSpace(e.Institution),
		degree:      strings.TrimSpace(e.Degree),
		endDate:     strings.TrimSpace(e.EndDate),
	}
}

// FilterToSource reduces an AI-tailored profile to entries that exist in source.
//
// Work entries must match on (company, position, start date, end date), education on
// (institution, degree, end date) and projects on name. Unmatched entries are dropped and
// factual fields of matched entries are restored from source, so only wording survives from
// the AI. Skills not present in source are dropped. The contact header always comes from
// source. Work entries are sorted by start date, newest first.
func FilterToSource(source, tailored *types.Profile) *types.Profile {
	out := &types.Profile{
		Name:              source.Name,
		Email:             source.Email,
		Phone:             source.Phone,
		Location:          source.Location,
		ProfilePictureURL: source.ProfilePictureURL,
		SocialLinks:       append([]types.SocialLink(nil), source.SocialLinks...),
		Education:         []types.Education{},
		WorkExperience:    []types.WorkExperience{},
		Projects:          []types.Project{},
		Skills:            []string{},
	}
	if tailored == nil {
		return out
	}

	sourceWork := make(map[workKey]types.WorkExperience, len(source.WorkExperience))
	for _, w := range source.WorkExperience {
		sourceWork[keyOf(w)] = w
	}
	seenWork := make(map[workKey]bool)
	for _, w := range tailored.WorkExperience {
		key := keyOf(w)
		src, ok := sourceWork[key]
		if !ok || seenWork[key] {
			continue
		}
		seenWork[key] = true

		entry := src
		entry.Description = nonEmpty(w.Description, src.Description)
		entry.Technologies = intersect(w.Technologies, src.Technologies)
		entry.Normalize()
		out.WorkExperience = append(out.WorkExperience, entry)
	}
	sort.SliceStable(out.WorkExperience, func(i, j int) bool {
		return out.WorkExperience[i].StartDate > out.WorkExperience[j].StartDate
	})

	sourceEdu := make(map[educationKey]types.Education, len(source.Education))
	for _, e := range source.Education {
		sourceEdu[educationKeyOf(e)] = e
	}
	seenEdu := make(map[educationKey]bool)
	for _, e := range tailored.Education {
		key := educationKeyOf(e)
		src, ok := sourceEdu[key]
		if !ok || seenEdu[key] {
			continue
		}
		seenEdu[key] = true

		entry := src
		if strings.TrimSpace(e.Description) != "" {
			entry.Description = e.Description
		}
		out.Education = append(out.Education, entry)
	}

	sourceProjects := make(map[string]types.Project, len(source.Projects))
	for _, p := range source.Projects {
		sourceProjects[strings.TrimSpace(p.Name)] = p
	}
	seenProjects := make(map[string]bool)
	for _, p := range tailored.Projects {
		name := strings.TrimSpace(p.Name)
		src, ok := sourceProjects[name]
		if !ok || seenProjects[name] {
			continue
		}
		seenProjects[name] = true

		entry := src
		entry.Description = nonEmpty(p.Description, src.Description)
		if len(p.Highlights) > 0 {
			entry.Highlights = p.Highlights
		}
		entry.Technologies = intersect(p.Technologies, src.Technologies)
		out.Projects = append(out.Projects, entry)
	}

	out.Skills = intersect(tailored.Skills, source.Skills)
	return out
}

// intersect returns the items of picked that appear in allowed, compared
// case-insensitively, in picked order and using the allowed spelling.
func intersect(picked, allowed []string) []string {
	canonical := make(map[string]string, len(allowed))
	for _, a := range allowed {
		canonical[strings.ToLower(strings.TrimSpace(a))] = a
	}
	out := []string{}
	seen := make(map[string]bool)
	for _, p := range picked {
		key := strings.ToLower(strings.TrimSpace(p))
		a, ok := canonical[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func nonEmpty(preferred, fallback []string) []string {
	var kept []string
	for _, s := range preferred {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return fallback
	}
	return kept
}
