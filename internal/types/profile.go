// Package types provides type definitions for structured data used throughout the resume-studio system.
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// SocialLink is a platform/URL pair shown in the resume header.
type SocialLink struct {
	Platform string `json:"platform" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
}

// Education represents a single education entry.
type Education struct {
	Institution string   `json:"institution" validate:"required"`
	Degree      string   `json:"degree" validate:"required"`
	Field       string   `json:"field,omitempty"`
	StartDate   string   `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01"`
	EndDate     string   `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01"`
	GPA         *float64 `json:"gpa,omitempty" validate:"omitempty,gte=0,lte=4"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
}

// WorkExperience represents a single work experience entry.
// Current implies no EndDate. An absent EndDate with Current false means the end is unknown.
type WorkExperience struct {
	Company      string   `json:"company" validate:"required"`
	Position     string   `json:"position" validate:"required"`
	Location     string   `json:"location,omitempty"`
	StartDate    string   `json:"start_date" validate:"required,datetime=2006-01"`
	EndDate      string   `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01"`
	Current      bool     `json:"current"`
	Description  []string `json:"description"`
	Technologies []string `json:"technologies,omitempty"`
}

// Project represents a personal or professional project.
type Project struct {
	Name         string   `json:"name" validate:"required"`
	Description  []string `json:"description"`
	StartDate    string   `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01"`
	EndDate      string   `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01"`
	Technologies []string `json:"technologies,omitempty"`
	Link         string   `json:"link,omitempty" validate:"omitempty,url"`
	GithubURL    string   `json:"github_url,omitempty" validate:"omitempty,url"`
	Highlights   []string `json:"highlights,omitempty"`
}

// Profile is a user's canonical career history.
type Profile struct {
	Name              string           `json:"name" validate:"required"`
	Email             string           `json:"email,omitempty" validate:"omitempty,email"`
	Phone             string           `json:"phone,omitempty"`
	Location          string           `json:"location,omitempty"`
	ProfilePictureURL string           `json:"profile_picture_url,omitempty" validate:"omitempty,url"`
	SocialLinks       []SocialLink     `json:"social_links,omitempty" validate:"dive"`
	Education         []Education      `json:"education" validate:"dive"`
	WorkExperience    []WorkExperience `json:"work_experience" validate:"dive"`
	Projects          []Project        `json:"projects" validate:"dive"`
	Skills            []string         `json:"skills"`
}

// Validate validates the Profile using the validator.
func (p *Profile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// Normalize enforces the current/end-date invariant on a work entry.
func (w *WorkExperience) Normalize() {
	w.EndDate = strings.TrimSpace(w.EndDate)
	if w.Current {
		w.EndDate = ""
	}
}

// Normalize normalizes every work entry and drops blank skills.
func (p *Profile) Normalize() {
	for i := range p.WorkExperience {
		p.WorkExperience[i].Normalize()
	}
	skills := p.Skills[:0]
	for _, s := range p.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	p.Skills = skills
}
