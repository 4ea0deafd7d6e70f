// Package content is the typed facade over the document store: one set of
// subscribe/read/write operations per entity type.
package content

// Collection names in the document store.
const (
	CollectionHero         = "hero"
	CollectionInsights     = "insights"
	CollectionAuthors      = "authors"
	CollectionOffices      = "offices"
	CollectionInquiries    = "inquiries"
	CollectionEvents       = "events"
	CollectionJobs         = "jobs"
	CollectionApplications = "applications"
	CollectionUsers        = "users"
)

// HeroID is the id of the singleton hero document.
const HeroID = "main"

// Hero is the home page banner.
type Hero struct {
	ID              string `json:"id,omitempty" yaml:"-"`
	Headline        string `json:"headline" yaml:"headline" validate:"required"`
	Subtext         string `json:"subtext" yaml:"subtext"`
	BackgroundImage string `json:"backgroundImage" yaml:"backgroundImage"`
	CTAText         string `json:"ctaText" yaml:"ctaText"`
	Active          *bool  `json:"active,omitempty" yaml:"active,omitempty"`
}

// InsightType tags the kind of publication an Insight represents.
type InsightType string

const (
	InsightTypeInsights  InsightType = "insights"
	InsightTypeReports   InsightType = "reports"
	InsightTypePodcasts  InsightType = "podcasts"
	InsightTypeArticles  InsightType = "articles"
	InsightTypeEvents    InsightType = "events"
	InsightTypeCaseStudy InsightType = "casestudy"
)

// Insight covers articles, reports, podcasts and case studies.
type Insight struct {
	ID            string      `json:"id,omitempty"`
	Type          InsightType `json:"type" validate:"required,oneof=insights reports podcasts articles events casestudy"`
	Category      string      `json:"category"`
	Title         string      `json:"title" validate:"required"`
	Date          string      `json:"date,omitempty"`
	Desc          string      `json:"desc"`
	Image         string      `json:"image"`
	BannerImage   string      `json:"bannerImage,omitempty"`
	PDFURL        string      `json:"pdfUrl,omitempty"`
	AudioURL      string      `json:"audioUrl,omitempty"`
	Season        string      `json:"season,omitempty"`
	Episode       string      `json:"episode,omitempty"`
	AuthorID      string      `json:"authorId,omitempty"`
	Content       string      `json:"content,omitempty"`
	IsFeatured    bool        `json:"isFeatured"`
	FeaturedColor string      `json:"featuredColor,omitempty"`
	ShowInHero    bool        `json:"showInHero"`
}

// Author is a firm member credited on insights.
type Author struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name" validate:"required"`
	Title          string `json:"title"`
	Image          string `json:"image"`
	Bio            string `json:"bio"`
	Role           string `json:"role,omitempty" validate:"omitempty,oneof=Partner 'Senior Associate' Associate Counsel 'Senior Partner'"`
	LinkedIn       string `json:"linkedin,omitempty"`
	WhatsApp       string `json:"whatsapp,omitempty"`
	Email          string `json:"email,omitempty" validate:"omitempty,email"`
	Qualifications string `json:"qualifications,omitempty"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Office is a branch chamber.
type Office struct {
	ID          string      `json:"id,omitempty" yaml:"id"`
	City        string      `json:"city" yaml:"city" validate:"required"`
	Address     string      `json:"address" yaml:"address"`
	Phone       string      `json:"phone" yaml:"phone"`
	Email       string      `json:"email" yaml:"email"`
	Coordinates Coordinates `json:"coordinates" yaml:"coordinates"`
	Image       string      `json:"image,omitempty" yaml:"image,omitempty"`
	LocationURL string      `json:"locationUrl,omitempty" yaml:"locationUrl,omitempty"`
}

// Event is a seminar or firm event listing.
type Event struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title" validate:"required"`
	Date     string `json:"date"`
	Desc     string `json:"desc"`
	Image    string `json:"image"`
	Location string `json:"location,omitempty"`
}

// JobStatus is the listing state of a Job.
type JobStatus string

const (
	JobActive JobStatus = "active"
	JobClosed JobStatus = "closed"
)

// Job is a careers listing.
type Job struct {
	ID           string    `json:"id,omitempty"`
	Title        string    `json:"title" validate:"required"`
	Department   string    `json:"department"`
	Location     string    `json:"location"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	Requirements []string  `json:"requirements"`
	Status       JobStatus `json:"status,omitempty" validate:"omitempty,oneof=active closed"`
	PostedDate   string    `json:"postedDate,omitempty"`
}

// Application statuses.
const (
	ApplicationReceived  = "Received"
	ApplicationInterview = "Interview"
	ApplicationRejected  = "Rejected"
)

// JobApplication is a candidate's submission for a Job.
type JobApplication struct {
	ID            string `json:"id,omitempty"`
	JobID         string `json:"jobId" validate:"required"`
	JobTitle      string `json:"jobTitle"`
	UserID        string `json:"userId"`
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Mobile        string `json:"mobile"`
	Education     string `json:"education"`
	Experience    string `json:"experience"`
	Interests     string `json:"interests"`
	ResumeURL     string `json:"resumeUrl,omitempty"`
	Status        string `json:"status"`
	ReferenceCode string `json:"referenceCode"`
	SubmittedDate string `json:"submittedDate"`
}

// Inquiry types.
const (
	InquiryRFP         = "rfp"
	InquiryContact     = "contact"
	InquiryAppointment = "appointment"
)

// Inquiry statuses.
const (
	InquiryNew      = "new"
	InquiryReviewed = "reviewed"
	InquiryArchived = "archived"
)

// Analysis is the classification attached to an appointment request.
type Analysis struct {
	SuggestedPracticeArea string `json:"suggestedPracticeArea"`
	Urgency               string `json:"urgency"`
	BriefAdvice           string `json:"briefAdvice"`
}

// InquiryDetails holds the form-specific part of an Inquiry. Each form
// fills the fields it collects.
type InquiryDetails struct {
	// appointment
	PreferredDate string    `json:"preferredDate,omitempty"`
	PreferredTime string    `json:"preferredTime,omitempty"`
	Branch        string    `json:"branch,omitempty"`
	Query         string    `json:"query,omitempty"`
	AIAnalysis    *Analysis `json:"aiAnalysis,omitempty"`

	// rfp
	Organization   string `json:"organization,omitempty"`
	Industry       string `json:"industry,omitempty"`
	EngagementType string `json:"engagementType,omitempty"`
	Budget         string `json:"budget,omitempty"`
	Timeline       string `json:"timeline,omitempty"`
	Description    string `json:"description,omitempty"`

	// contact
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message,omitempty"`
}

// Inquiry is a public form submission tracked by staff.
type Inquiry struct {
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type" validate:"required,oneof=rfp contact appointment"`
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	UserID   string         `json:"userId,omitempty"`
	Date     string         `json:"date"`
	Status   string         `json:"status"`
	UniqueID string         `json:"uniqueId"`
	Details  InquiryDetails `json:"details"`
}

// UserProfile is the stored account record. PasswordHash never leaves the
// server; see Public.
type UserProfile struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	Role         string `json:"role"`
	PasswordHash string `json:"passwordHash,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// Public returns a copy without credentials.
func (p UserProfile) Public() UserProfile {
	p.PasswordHash = ""
	return p
}
