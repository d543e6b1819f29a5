package tailoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-studio/internal/types"
)

func sourceProfile() *types.Profile {
	gpa := 3.9
	return &types.Profile{
		Name:        "Grace Hopper",
		Email:       "grace@example.com",
		Phone:       "555-0199",
		Location:    "Arlington, VA",
		SocialLinks: []types.SocialLink{{Platform: "GitHub", URL: "https://github.com/grace"}},
		Education: []types.Education{
			{Institution: "Yale", Degree: "PhD", Field: "Mathematics", StartDate: "1930-09", EndDate: "1934-06", GPA: &gpa},
			{Institution: "Vassar", Degree: "BA", Field: "Mathematics", EndDate: "1928-06"},
		},
		WorkExperience: []types.WorkExperience{
			{Company: "Navy", Position: "Officer", StartDate: "1943-12", EndDate: "1966-12", Description: []string{"Programmed Mark I"}, Technologies: []string{"Mark I"}},
			{Company: "Remington Rand", Position: "Senior Mathematician", StartDate: "1949-01", EndDate: "1971-08", Description: []string{"Built A-0"}, Technologies: []string{"UNIVAC", "COBOL"}},
			{Company: "DEC", Position: "Consultant", StartDate: "1986-01", Current: true, Description: []string{"Lectured"}},
		},
		Projects: []types.Project{
			{Name: "COBOL", Description: []string{"Co-designed COBOL"}, Technologies: []string{"COBOL"}, Link: "https://example.com/cobol"},
			{Name: "FLOW-MATIC", Description: []string{"English-like language"}},
		},
		Skills: []string{"COBOL", "Compilers", "Leadership"},
	}
}

func TestFilterToSource_DropsInventedEntries(t *testing.T) {
	src := sourceProfile()
	tailored := &types.Profile{
		Name: "Someone Else",
		WorkExperience: []types.WorkExperience{
			{Company: "Navy", Position: "Officer", StartDate: "1943-12", EndDate: "1966-12", Description: []string{"Led Mark I programming"}},
			{Company: "Navy", Position: "Admiral", StartDate: "1943-12", EndDate: "1966-12"},
			{Company: "Google", Position: "Engineer", StartDate: "2000-01", Current: true},
			{Company: "Remington Rand", Position: "Senior Mathematician", StartDate: "1949-01", EndDate: "1970-01"},
		},
		Education: []types.Education{
			{Institution: "Yale", Degree: "PhD", EndDate: "1934-06"},
			{Institution: "MIT", Degree: "PhD", EndDate: "1934-06"},
			{Institution: "Vassar", Degree: "BS", EndDate: "1928-06"},
		},
		Projects: []types.Project{
			{Name: "COBOL", Description: []string{"Shaped COBOL"}},
			{Name: "Kubernetes", Description: []string{"Invented"}},
		},
		Skills: []string{"cobol", "Kubernetes", "Leadership"},
	}

	out := FilterToSource(src, tailored)

	require.Len(t, out.WorkExperience, 1)
	assert.Equal(t, "Officer", out.WorkExperience[0].Position)
	assert.Equal(t, []string{"Led Mark I programming"}, out.WorkExperience[0].Description)

	require.Len(t, out.Education, 1)
	assert.Equal(t, "Yale", out.Education[0].Institution)
	require.NotNil(t, out.Education[0].GPA)
	assert.Equal(t, 3.9, *out.Education[0].GPA)

	require.Len(t, out.Projects, 1)
	assert.Equal(t, []string{"Shaped COBOL"}, out.Projects[0].Description)
	assert.Equal(t, "https://example.com/cobol", out.Projects[0].Link)

	assert.Equal(t, []string{"COBOL", "Leadership"}, out.Skills)
}

func TestFilterToSource_HeaderFromSource(t *testing.T) {
	src := sourceProfile()
	out := FilterToSource(src, &types.Profile{Name: "Impostor", Email: "x@evil.test"})

	assert.Equal(t, "Grace Hopper", out.Name)
	assert.Equal(t, "grace@example.com", out.Email)
	assert.Equal(t, src.SocialLinks, out.SocialLinks)
	assert.Empty(t, out.WorkExperience)
	assert.NotNil(t, out.WorkExperience)
}

func TestFilterToSource_SortsWorkNewestFirst(t *testing.T) {
	src := sourceProfile()
	tailored := &types.Profile{WorkExperience: src.WorkExperience}

	out := FilterToSource(src, tailored)

	require.Len(t, out.WorkExperience, 3)
	assert.Equal(t, "DEC", out.WorkExperience[0].Company)
	assert.Equal(t, "Remington Rand", out.WorkExperience[1].Company)
	assert.Equal(t, "Navy", out.WorkExperience[2].Company)
}

func TestFilterToSource_CurrentInvariant(t *testing.T) {
	src := sourceProfile()
	tailored := &types.Profile{WorkExperience: []types.WorkExperience{
		// Current with a stray end date still matches the ongoing source entry.
		{Company: "DEC", Position: "Consultant", StartDate: "1986-01", EndDate: "1992-01", Current: true},
		// Claims current for an entry that ended.
		{Company: "Navy", Position: "Officer", StartDate: "1943-12", EndDate: "1966-12", Current: true},
	}}

	out := FilterToSource(src, tailored)

	require.Len(t, out.WorkExperience, 1)
	assert.True(t, out.WorkExperience[0].Current)
	assert.Empty(t, out.WorkExperience[0].EndDate)
}

func TestFilterToSource_FactsRestoredFromSource(t *testing.T) {
	src := sourceProfile()
	tailored := &types.Profile{WorkExperience: []types.WorkExperience{
		{Company: "Remington Rand", Position: "Senior Mathematician", StartDate: "1949-01", EndDate: "1971-08",
			Location: "Mars", Technologies: []string{"univac", "Rust"}, Description: []string{"", " "}},
	}}

	out := FilterToSource(src, tailored)

	require.Len(t, out.WorkExperience, 1)
	w := out.WorkExperience[0]
	assert.Empty(t, w.Location)
	assert.Equal(t, []string{"UNIVAC"}, w.Technologies)
	assert.Equal(t, []string{"Built A-0"}, w.Description)
}

func TestFilterToSource_Duplicates(t *testing.T) {
	src := sourceProfile()
	w := src.WorkExperience[0]
	out := FilterToSource(src, &types.Profile{
		WorkExperience: []types.WorkExperience{w, w},
		Projects:       []types.Project{{Name: "COBOL"}, {Name: "COBOL"}},
		Skills:         []string{"COBOL", "cobol"},
	})
	assert.Len(t, out.WorkExperience, 1)
	assert.Len(t, out.Projects, 1)
	assert.Equal(t, []string{"COBOL"}, out.Skills)
}

func TestFilterToSource_NilTailored(t *testing.T) {
	out := FilterToSource(sourceProfile(), nil)
	assert.Equal(t, "Grace Hopper", out.Name)
	assert.Empty(t, out.Skills)
}

// Every surviving entry must exist in the source, whatever the AI returned.
func TestFilterToSource_SubsetInvariantRandomized(t *testing.T) {
	src := sourceProfile()
	rng := rand.New(rand.NewSource(42))

	companies := []string{"Navy", "Remington Rand", "DEC", "Acme"}
	positions := []string{"Officer", "Senior Mathematician", "Consultant", "CEO"}
	dates := []string{"1943-12", "1949-01", "1986-01", "1966-12", "1971-08", ""}

	for i := 0; i < 200; i++ {
		tailored := &types.Profile{}
		for j := 0; j < rng.Intn(6); j++ {
			tailored.WorkExperience = append(tailored.WorkExperience, types.WorkExperience{
				Company:   companies[rng.Intn(len(companies))],
				Position:  positions[rng.Intn(len(positions))],
				StartDate: dates[rng.Intn(len(dates))],
				EndDate:   dates[rng.Intn(len(dates))],
				Current:   rng.Intn(2) == 0,
			})
			tailored.Projects = append(tailored.Projects, types.Project{Name: []string{"COBOL", "FLOW-MATIC", "Fake"}[rng.Intn(3)]})
			tailored.Education = append(tailored.Education, types.Education{
				Institution: []string{"Yale", "Vassar", "MIT"}[rng.Intn(3)],
				Degree:      []string{"PhD", "BA"}[rng.Intn(2)],
				EndDate:     []string{"1934-06", "1928-06"}[rng.Intn(2)],
			})
		}

		out := FilterToSource(src, tailored)

		for _, w := range out.WorkExperience {
			assert.Contains(t, sourceWorkKeys(src), keyOf(w))
		}
		for _, e := range out.Education {
			assert.Contains(t, sourceEducationKeys(src), educationKeyOf(e))
		}
		for _, p := range out.Projects {
			assert.Contains(t, []string{"COBOL", "FLOW-MATIC"}, p.Name)
		}
		for k := 1; k < len(out.WorkExperience); k++ {
			assert.GreaterOrEqual(t, out.WorkExperience[k-1].StartDate, out.WorkExperience[k].StartDate)
		}
	}
}

func sourceWorkKeys(p *types.Profile) []workKey {
	var keys []workKey
	for _, w := range p.WorkExperience {
		keys = append(keys, keyOf(w))
	}
	return keys
}

func sourceEducationKeys(p *types.Profile) []educationKey {
	var keys []educationKey
	for _, e := range p.Education {
		keys = append(keys, educationKeyOf(e))
	}
	return keys
}
